package backend

import (
	"errors"
	"fmt"
	"strings"

	"financia/internal/config"
)

// ErrInvalidConfig wraps every problem Validate reports.
var ErrInvalidConfig = errors.New("invalid backend config")

// FromAppConfig picks the state backend settings out of the process config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("%w: app config is nil", ErrInvalidConfig)
	}

	backendType := BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend)))
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("%w: unknown data backend %q (want one of %s)",
			ErrInvalidConfig, appConfig.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}

	cfg := Config{
		Type:                     backendType,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		FirestoreProjectID:       appConfig.FirestoreProjectID,
		FirestoreCredentialsFile: appConfig.FirestoreCredentialsFile,
		FirestoreCollection:      appConfig.FirestoreCollection,
	}
	// Sync messages only make sense next to the local store the worker reads.
	if backendType == SQLiteBackend && appConfig.AMQPEnabled() {
		cfg.AMQPURL = appConfig.AMQPURL
		cfg.AMQPExchange = appConfig.AMQPExchange
		cfg.AMQPQueue = appConfig.AMQPQueue
	}
	return cfg, nil
}

// Validate reports every missing setting for the selected backend at once.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidConfig, c.Type)
	}

	var errs []error
	missing := func(what string) {
		errs = append(errs, fmt.Errorf("%w: %s backend needs %s", ErrInvalidConfig, c.Type, what))
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			missing("a database path")
		}
		if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
			missing("an AMQP exchange and queue when AMQP is enabled")
		}
	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			missing("a project id")
		}
		if c.FirestoreCollection == "" {
			missing("a collection")
		}
	case MemoryBackend:
	}
	return errors.Join(errs...)
}

// GetBackendTypes lists the supported state backends, default first.
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, FirestoreBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
