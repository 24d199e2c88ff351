package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
)

// NotificationPrefs holds where a tenant wants hot-lead alerts delivered.
type NotificationPrefs struct {
	EmailEnabled    bool     `yaml:"email_enabled"`
	EmailRecipients []string `yaml:"email_recipients"`

	TelegramEnabled bool     `yaml:"telegram_enabled"`
	TelegramChatIDs []string `yaml:"telegram_chat_ids"`

	WhatsAppEnabled    bool     `yaml:"whatsapp_enabled"`
	WhatsAppRecipients []string `yaml:"whatsapp_recipients"` // operator cell phones
}

// Tenant is the per-organization configuration.
type Tenant struct {
	Name          string            `yaml:"name"`
	Notifications NotificationPrefs `yaml:"notifications"`
	// NameExclusions are brand or product names that look like "First Last".
	NameExclusions []string                   `yaml:"name_exclusions"`
	Services       []analyzer.ServiceCategory `yaml:"services"`
}

type tenantFile struct {
	Default Tenant            `yaml:"default"`
	Tenants map[string]Tenant `yaml:"tenants"`
}

// TenantStore serves tenant configuration loaded from YAML.
type TenantStore struct {
	def     Tenant
	tenants map[string]Tenant
}

// LoadTenants reads the routing file at path. An empty path yields a store
// where every org gets the zero default (no channels enabled).
func LoadTenants(path string) (*TenantStore, error) {
	if strings.TrimSpace(path) == "" {
		return &TenantStore{tenants: map[string]Tenant{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read tenants %s: %w", path, err)
	}
	return ParseTenants(data)
}

// ParseTenants decodes a routing document.
func ParseTenants(data []byte) (*TenantStore, error) {
	var file tenantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse tenants: %w", err)
	}
	if file.Tenants == nil {
		file.Tenants = map[string]Tenant{}
	}
	return &TenantStore{def: file.Default, tenants: file.Tenants}, nil
}

// Get returns the tenant for orgID, falling back to the default entry.
func (s *TenantStore) Get(_ context.Context, orgID string) (*Tenant, error) {
	t, ok := s.tenants[orgID]
	if !ok {
		t = s.def
	}
	if t.Name == "" {
		t.Name = orgID
	}
	return &t, nil
}

// OrgIDs lists the explicitly configured organizations.
func (s *TenantStore) OrgIDs() []string {
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids
}
