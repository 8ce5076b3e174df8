package types

import "time"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"5000"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Allowed browser origins for the report form. Empty allows any origin
	// outside production.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	// Media storage. When MediaBucket is set attachments go to S3,
	// otherwise they are written below UploadDir and served at /uploads.
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MediaBucket string `envconfig:"MEDIA_BUCKET"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`

	// Report events. Publishing is disabled when no brokers are set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"incident-reports"`
}

// ClientConfig configures the field reporting client.
type ClientConfig struct {
	ServerURL       string        `envconfig:"SERVER_URL" default:"http://localhost:5000"`
	QueueDir        string        `envconfig:"QUEUE_DIR" default:".oceanwatch"`
	QueueNamespace  string        `envconfig:"QUEUE_NAMESPACE" default:"pendingReports"`
	SubmitTimeout   time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"15s"`
	ProbeTimeout    time.Duration `envconfig:"PROBE_TIMEOUT" default:"3s"`
	ProbeInterval   time.Duration `envconfig:"PROBE_INTERVAL" default:"5s"`
	ProbeDebounce   time.Duration `envconfig:"PROBE_DEBOUNCE" default:"2s"`
	DeviceUserAgent string        `envconfig:"DEVICE_USER_AGENT" default:"oceanwatch-cli"`
	DeviceLanguage  string        `envconfig:"DEVICE_LANGUAGE" default:"en"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}
