package kafka

type Config struct {
	Enabled bool     `json:"enabled"`
	Addrs   []string `json:"addrs"`
	Topic   string   `json:"topic"`
	Timeout int      `json:"timeout"`
	Retries int      `json:"retries"`
}
