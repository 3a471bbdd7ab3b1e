package notification

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FromAddr   string `json:"from_address"`
	Encryption string `json:"encryption"` // "none", "starttls", "ssl_tls"
}

// Configured reports whether credentials are present. Without them the
// email channel answers every send with ReasonNotConfigured.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}
