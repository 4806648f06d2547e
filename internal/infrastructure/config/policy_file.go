package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// policyFile is the YAML layout of a permission seed:
//
//	permissions:
//	  WRITE_COMMUNITY: [user, operator, admin]
//	  VIEW_ANALYTICS: [admin]
type policyFile struct {
	Permissions map[string][]string `yaml:"permissions"`
}

// LoadPolicyFile reads permission overrides from path. An empty path yields
// no overrides.
func LoadPolicyFile(path string) (domain.Matrix, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	m := make(domain.Matrix, len(pf.Permissions))
	for perm, roles := range pf.Permissions {
		rs := make([]domain.Role, len(roles))
		for i, r := range roles {
			rs[i] = domain.Role(r)
		}
		m[domain.Permission(perm)] = rs
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return m, nil
}
