package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

const (
	PolicyInstant = "instant"
	PolicyDecay   = "decay"
)

// Validate checks the full configuration surface. Any error here is fatal
// at startup: the process must not begin polling with inverted bounds or
// missing provider identifiers.
func (c *Config) Validate() error {
	var result *multierror.Error

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		result = multierror.Append(result, errors.New("app.mode must be one of: development, production, test"))
	}

	a := c.Autoscaler
	if a.MinInstances < 1 {
		result = multierror.Append(result, errors.New("autoscaler.min_instances must be >= 1"))
	}
	if a.MaxInstances < a.MinInstances {
		result = multierror.Append(result, fmt.Errorf(
			"autoscaler.max_instances (%d) must be >= min_instances (%d)", a.MaxInstances, a.MinInstances))
	}
	if a.RunnersPerInstance < 1 {
		result = multierror.Append(result, errors.New("autoscaler.runners_per_instance must be >= 1"))
	}
	if a.PollInterval <= 0 {
		result = multierror.Append(result, errors.New("autoscaler.poll_interval must be positive"))
	}
	if a.ScaleUpCooldown < 0 {
		result = multierror.Append(result, errors.New("autoscaler.scale_up_cooldown must be >= 0"))
	}
	if a.ScaleDownCooldown < 0 {
		result = multierror.Append(result, errors.New("autoscaler.scale_down_cooldown must be >= 0"))
	}
	if a.ScaleUpStep < 1 {
		result = multierror.Append(result, errors.New("autoscaler.scale_up_step must be >= 1"))
	}
	if a.ScaleUpProportion <= 0 || a.ScaleUpProportion > 1 {
		result = multierror.Append(result, errors.New("autoscaler.scale_up_proportion must be in (0, 1]"))
	}

	switch a.Policy.Type {
	case PolicyInstant:
	case PolicyDecay:
		if a.Policy.HalfLife <= 0 {
			result = multierror.Append(result, errors.New("autoscaler.policy.half_life must be positive"))
		}
		if a.Policy.BreachThreshold <= 0 {
			result = multierror.Append(result, errors.New("autoscaler.policy.breach_threshold must be positive"))
		}
		if a.Policy.Window <= 0 {
			result = multierror.Append(result, errors.New("autoscaler.policy.window must be positive"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("autoscaler.policy.type must be %q or %q", PolicyInstant, PolicyDecay))
	}

	if c.GitHub.Token == "" {
		result = multierror.Append(result, errors.New("github.token is required"))
	}
	if c.GitHub.Org == "" && (c.GitHub.Owner == "" || c.GitHub.Repo == "") {
		result = multierror.Append(result, errors.New("github.org or github.owner and github.repo must be set"))
	}

	if c.DigitalOcean.Token == "" {
		result = multierror.Append(result, errors.New("digitalocean.token is required"))
	}
	if c.DigitalOcean.AppID == "" {
		result = multierror.Append(result, errors.New("digitalocean.app_id is required"))
	}
	if c.DigitalOcean.WorkerName == "" {
		result = multierror.Append(result, errors.New("digitalocean.worker_name is required"))
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			result = multierror.Append(result, errors.New("api.port must be between 1 and 65535"))
		}
		if c.API.JWTSecret == "" {
			result = multierror.Append(result, errors.New("api.jwt_secret is required when the API is enabled"))
		}
		if c.API.AdminToken == "" {
			result = multierror.Append(result, errors.New("api.admin_token is required when the API is enabled"))
		}
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			result = multierror.Append(result, errors.New("database.host is required when the database is enabled"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			result = multierror.Append(result, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			result = multierror.Append(result, errors.New("database.name is required when the database is enabled"))
		}
		if c.Database.MaxConnections <= 0 {
			result = multierror.Append(result, errors.New("database.max_connections must be positive"))
		}
	}

	return result.ErrorOrNil()
}
