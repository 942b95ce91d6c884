package core

import "maps"

// Record is the flat message shape handed to a Connection.
// Address fields hold formatted strings; ReplyTo is empty when absent.
type Record struct {
	From        string
	To          []string
	CC          []string
	BCC         []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Headers     map[string]string
	Attachments []Attachment
}

// FormatMessage maps a message onto the record a Connection sends.
// No validation happens here; malformed addresses pass through unchanged.
func FormatMessage(msg *Message) *Record {
	rec := &Record{
		From:        msg.From.String(),
		To:          formatAddresses(msg.To),
		CC:          formatAddresses(msg.CC),
		BCC:         formatAddresses(msg.BCC),
		Subject:     msg.Subject,
		Text:        msg.Text,
		HTML:        msg.HTML,
		Headers:     make(map[string]string, len(msg.Headers)),
		Attachments: make([]Attachment, len(msg.Attachments)),
	}
	if msg.ReplyTo != nil {
		rec.ReplyTo = msg.ReplyTo.String()
	}
	maps.Copy(rec.Headers, msg.Headers)
	for i, att := range msg.Attachments {
		rec.Attachments[i] = Attachment{Path: att.Path, Filename: att.Filename}
	}
	return rec
}

func formatAddresses(addrs []Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
