package capability

import (
	"google.golang.org/api/option"
)

// Credential is the opaque handle capability factories use to authenticate
// Google API clients. Holding a Credential never opens a connection; it only
// carries client options applied when a capability instance is constructed.
type Credential struct {
	opts []option.ClientOption
}

// NewCredential builds a credential handle. With a non-empty path the
// service-account key file at that path is used; otherwise clients fall back
// to Application Default Credentials. Extra options are appended as-is,
// which lets tests construct clients without any authentication.
func NewCredential(credentialsFile string, extra ...option.ClientOption) *Credential {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)
	return &Credential{opts: opts}
}

// Options returns a copy of the client options for this credential.
func (c *Credential) Options() []option.ClientOption {
	out := make([]option.ClientOption, len(c.opts))
	copy(out, c.opts)
	return out
}
