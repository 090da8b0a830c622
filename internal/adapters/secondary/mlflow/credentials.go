package mlflow

import (
	"os"

	log "github.com/sirupsen/logrus"
)

const credentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS"

// SetupGCSCredentials exports a service-account key file for artifact stores
// backed by Google Cloud Storage. It reports whether the key was applied.
func SetupGCSCredentials(path string) bool {
	if path == "" {
		log.Info("no GCS credentials specified, using default authentication")
		return false
	}

	if _, err := os.Stat(path); err != nil {
		log.WithField("path", path).Warn("GCS credentials file not found")
		return false
	}

	if err := os.Setenv(credentialsEnv, path); err != nil {
		log.WithError(err).Warn("failed to export GCS credentials")
		return false
	}
	log.WithField("path", path).Info("using GCS credentials")
	return true
}
