package csrf

// Config of the anti-forgery protection.
//
// AuthKey must be 32 bytes long. Empty key means a random key is generated on
// start, so issued tokens do not survive a restart.
type Config struct {
	AuthKey        string   `json:"auth-key"`
	Secure         bool     `json:"secure"`
	TrustedOrigins []string `json:"trusted-origins,omitempty"`
}
