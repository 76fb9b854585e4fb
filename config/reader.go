package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/yams/logging"
)

// Read reads a config file, substituting environment variables first.
func Read(filePath string, logger logging.Logger) (*File, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from r. originalPath is only used in errors.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", originalPath)
	}
	var attributes map[string]interface{}
	if err := json5.Unmarshal(raw, &attributes); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %s", originalPath)
	}

	var cfg File
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %s", originalPath)
	}
	for _, key := range md.Unused {
		logger.Warnw("ignoring unknown config attribute", "config", originalPath, "attribute", key)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", originalPath)
	}
	return &cfg, nil
}
