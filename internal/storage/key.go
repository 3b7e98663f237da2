package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Defaults applied when the page does not declare an identity field.
const (
	DefaultCartKeyPrefix = "cart"
	DefaultCategory      = "general"
	DefaultVendorID      = "default"
)

// Identity is what a storefront page declares about itself. It decides
// which cart a browser sees, so two menus of the same tenant keep
// separate carts.
type Identity struct {
	CartKeyPrefix string `json:"cart_key_prefix,omitempty"`
	Category      string `json:"category,omitempty"`
	VendorID      string `json:"vendor_id,omitempty"`
	VendorSlug    string `json:"vendor_slug,omitempty"`
	Theme         string `json:"theme,omitempty"`
	Page          string `json:"page,omitempty"`

	// CartKey overrides the derived namespaced key when set.
	CartKey string `json:"cart_key,omitempty"`
}

// WithDefaults fills empty prefix, category and vendor id.
func (id Identity) WithDefaults() Identity {
	if id.CartKeyPrefix == "" {
		id.CartKeyPrefix = DefaultCartKeyPrefix
	}
	if id.Category == "" {
		id.Category = DefaultCategory
	}
	if id.VendorID == "" {
		id.VendorID = DefaultVendorID
	}
	return id
}

// CartStorageKey returns prefix_category_vendor_themeOrPage, skipping
// empty parts.
func (id Identity) CartStorageKey() string {
	id = id.WithDefaults()
	if id.CartKey != "" {
		return id.CartKey
	}
	vendor := firstNonEmpty(id.VendorSlug, id.VendorID, DefaultVendorID)
	view := firstNonEmpty(id.Theme, id.Page)

	var parts []string
	for _, p := range []string{id.Category, vendor, view} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return id.CartKeyPrefix + "_" + strings.Join(parts, "_")
}

// LegacyCartStorageKey is the key used before carts were namespaced by
// vendor slug and theme.
func (id Identity) LegacyCartStorageKey() string {
	id = id.WithDefaults()
	return id.CartKeyPrefix + "_" + id.Category + "_" + id.VendorID
}

// LoadWithMigration reads key. When key is empty and legacy holds a value,
// the legacy value is copied into key first. Running it again is a no-op
// because key is no longer empty. The legacy entry is left in place.
func LoadWithMigration(ctx context.Context, s Store, key, legacy string, log *zap.Logger) (string, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if (ok && value != "") || legacy == key {
		return value, nil
	}

	legacyValue, ok, err := s.Get(ctx, legacy)
	if err != nil {
		return "", fmt.Errorf("read legacy %s: %w", legacy, err)
	}
	if !ok || legacyValue == "" {
		return value, nil
	}
	if err := s.Set(ctx, key, legacyValue); err != nil {
		log.Warn("cart migration failed", zap.String("legacy_key", legacy), zap.Error(err))
		return value, nil
	}
	log.Info("migrated cart from legacy key", zap.String("legacy_key", legacy), zap.String("key", key))
	return legacyValue, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
