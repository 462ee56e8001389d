package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	defaultLang     = "en"
	defaultLimit    = 5
)

var (
	ErrNoTenants     = errors.New("config: no tenants configured")
	ErrUnknownTenant = errors.New("config: unknown tenant")
)

// Tenant is one independently configured news channel.
type Tenant struct {
	Key    string
	Feeds  []string
	TZ     string
	Lang   string
	Limit  int
	ChatID string

	location *time.Location
}

// Location returns the resolved tenant zone, UTC when unset.
func (t Tenant) Location() *time.Location {
	if t.location != nil {
		return t.location
	}
	return time.UTC
}

// tenantFile mirrors one entry of the YAML document:
//
//	chisinau:
//	  feeds: [https://...]
//	  tz: Europe/Chisinau
//	  lang: ro
//	  limit: 7
type tenantFile struct {
	Feeds  []string `yaml:"feeds"`
	TZ     string   `yaml:"tz"`
	Lang   string   `yaml:"lang"`
	Limit  int      `yaml:"limit"`
	ChatID string   `yaml:"chat_id"`
}

// LoadTenants reads the tenant map from YAML. Tenants come back sorted by key.
func LoadTenants(path string) ([]Tenant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read tenants %s: %w", path, err)
	}
	return ParseTenants(raw)
}

// ParseTenants decodes and validates a tenant document.
func ParseTenants(raw []byte) ([]Tenant, error) {
	var doc map[string]tenantFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse tenants: %w", err)
	}
	if len(doc) == 0 {
		return nil, ErrNoTenants
	}

	tenants := make([]Tenant, 0, len(doc))
	for key, tf := range doc {
		t, err := buildTenant(key, tf)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	sort.Slice(tenants, func(i, j int) bool { return tenants[i].Key < tenants[j].Key })
	return tenants, nil
}

func buildTenant(key string, tf tenantFile) (Tenant, error) {
	t := Tenant{
		Key:    key,
		TZ:     tf.TZ,
		Lang:   tf.Lang,
		Limit:  tf.Limit,
		ChatID: tf.ChatID,
	}
	if t.TZ == "" {
		t.TZ = defaultTimezone
	}
	if t.Lang == "" {
		t.Lang = defaultLang
	}
	if t.Limit <= 0 {
		t.Limit = defaultLimit
	}
	if t.ChatID == "" {
		t.ChatID = os.Getenv("CHAT_" + strings.ToUpper(key))
	}

	for _, feed := range tf.Feeds {
		if feed = strings.TrimSpace(feed); feed != "" {
			t.Feeds = append(t.Feeds, feed)
		}
	}
	if len(t.Feeds) == 0 {
		return Tenant{}, fmt.Errorf("config: tenant %s has no feeds", key)
	}

	loc, err := time.LoadLocation(t.TZ)
	if err != nil {
		return Tenant{}, fmt.Errorf("config: tenant %s: unknown timezone %s: %w", key, t.TZ, err)
	}
	t.location = loc

	return t, nil
}

// Find returns the tenant with the given key.
func Find(tenants []Tenant, key string) (Tenant, error) {
	for _, t := range tenants {
		if t.Key == key {
			return t, nil
		}
	}
	return Tenant{}, fmt.Errorf("%w: %s", ErrUnknownTenant, key)
}
