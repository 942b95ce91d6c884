package smtpmail

import (
	"runtime/debug"
	"sync"
)

const modulePath = "github.com/lattiq/smtpmail"

// Version is the library version. Release builds set it with
// -ldflags "-X github.com/lattiq/smtpmail.Version=v1.2.3".
var Version = "dev"

var libraryVersion = sync.OnceValue(func() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	return moduleVersion(info, Version)
})

// LibraryVersion returns Version, or the version the Go toolchain recorded
// for this module when Version was not set at build time.
func LibraryVersion() string {
	return libraryVersion()
}

// MailerName returns the X-Mailer header value for outgoing messages.
func MailerName() string {
	return "smtpmail/" + LibraryVersion()
}

// moduleVersion finds this module in build info, whether it is the main
// module or a dependency of it.
func moduleVersion(info *debug.BuildInfo, fallback string) string {
	mod := &info.Main
	if mod.Path != modulePath {
		mod = nil
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				mod = dep
				break
			}
		}
	}
	if mod == nil {
		return fallback
	}
	if mod.Replace != nil {
		mod = mod.Replace
	}
	if mod.Version == "" || mod.Version == "(devel)" {
		return fallback
	}
	return mod.Version
}
