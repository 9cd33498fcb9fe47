// Package version reports the firmware version of the runtime.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/dspcore/version.Version=1.4.2"
//
// The same Info answers the host's version query and GET /version.
package version
