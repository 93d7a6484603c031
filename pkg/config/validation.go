package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/oncrpc/pkg/portmap"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, so both uppercase
// and lowercase levels are accepted here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	type key struct {
		prog, vers uint32
		netid      string
	}
	seen := make(map[key]bool)
	for i, r := range cfg.Portmap.Registrations {
		if _, err := portmap.ParseUniversalAddr(r.Addr); err != nil {
			return fmt.Errorf("portmap.registrations[%d]: %w", i, err)
		}
		if portmap.ProtoForNetID(r.NetID) == 0 {
			return fmt.Errorf("portmap.registrations[%d]: unknown netid %q", i, r.NetID)
		}
		k := key{r.Program, r.Version, r.NetID}
		if seen[k] {
			return fmt.Errorf("portmap.registrations[%d]: duplicate registration of program %d version %d on %s",
				i, r.Program, r.Version, r.NetID)
		}
		seen[k] = true
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Portmap.Port {
		return fmt.Errorf("metrics.port: %d is already used by the portmapper", cfg.Metrics.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
