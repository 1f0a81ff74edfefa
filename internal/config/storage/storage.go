package storage

const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
)

// Config object representation of json data
type Config struct {
	Kind     string `json:"kind"`
	DBName   string `json:"dbname"`
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Timeout  int    `json:"connection-timeout,omitempty"`
	Seed     []Seed `json:"seed,omitempty"`
}

// Seed is a post created on start when the store is empty
type Seed struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
