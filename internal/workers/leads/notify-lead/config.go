// internal/workers/leads/notify-lead/config.go
package notifylead

import "time"

type Config struct {
	EmailTo      []string
	EmailSubject string
	SMSSubject   string
	Country      string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailSubject: "Nuevo lead registrado",
		SMSSubject:   "Nuevo lead",
		Country:      "CO",
		Timeout:      30 * time.Second,
	}
}
