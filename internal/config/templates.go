package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a commented starter config in format ("toml" or
// "yaml") holding the defaults.
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template(Format(path))
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `# frame payload ceiling in bytes
max_payload_bytes = 8388608

session_timeout = "5s"
keepalive_interval = "2500ms"
request_timeout = "5s"
max_pending = 1024

backoff_initial_delay = "250ms"
backoff_multiplier = 2.0
backoff_max_delay = "5s"
backoff_jitter = true

log_level = "info"
log_timestamp = true
log_no_color = false

metrics_namespace = "copycatwire"
`

const yamlTemplate = `# frame payload ceiling in bytes
max_payload_bytes: 8388608

session_timeout: 5s
keepalive_interval: 2500ms
request_timeout: 5s
max_pending: 1024

backoff_initial_delay: 250ms
backoff_multiplier: 2.0
backoff_max_delay: 5s
backoff_jitter: true

log_level: info
log_timestamp: true
log_no_color: false

metrics_namespace: copycatwire
`
