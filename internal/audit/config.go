// Package audit implements the compliance checklist: config loading and
// content hashing, audit runs and per-item results, evidence links and
// exclusions, and chunk-based evidence suggestions.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// itemWhitelist fixes which checklist items the engine evaluates. Config
// files may carry more, but anything outside this set is ignored and does
// not affect the config hash.
var itemWhitelist = map[string]bool{
	"1.1": true,
	"1.2": true,
	"1.3": true,
	"1.4": true,
	"1.5": true,
}

type ConfigItem struct {
	ItemID        string   `json:"item_id"`
	Titulo        string   `json:"titulo"`
	Requisitos    []string `json:"requisitos"`
	Campos        []string `json:"campos"`
	Evidencias    []string `json:"evidencias"`
	PalavrasChave []string `json:"palavras_chave"`
}

type Config struct {
	Version string       `json:"version"`
	Engine  string       `json:"engine"`
	Items   []ConfigItem `json:"items"`
	Hash    string       `json:"-"`
}

type configFile struct {
	Version string       `json:"version"`
	Engine  string       `json:"engine"`
	Items   []ConfigItem `json:"items"`
}

// LoadConfig reads the checklist definition, keeps only whitelisted items
// sorted by item id, and stamps the content hash. Loading the same file
// twice yields the same hash.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit config: %w", err)
	}

	var file configFile
	if err := json.Unmarshal(raw, &file); err != nil {
		// Some deployments ship the items as a bare array.
		if jerr := json.Unmarshal(raw, &file.Items); jerr != nil {
			return nil, fmt.Errorf("parse audit config: %w", err)
		}
	}

	items := make([]ConfigItem, 0, len(itemWhitelist))
	for _, it := range file.Items {
		if itemWhitelist[it.ItemID] {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })

	hash, err := hashItems(items)
	if err != nil {
		return nil, err
	}

	engine := file.Engine
	if engine == "" {
		engine = "checklist-v1"
	}

	return &Config{
		Version: file.Version,
		Engine:  engine,
		Items:   items,
		Hash:    hash,
	}, nil
}

// hashItems content-addresses the filtered item list. The items are already
// sorted and struct field order is fixed, so the JSON serialization is
// canonical.
func hashItems(items []ConfigItem) (string, error) {
	canonical, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("serialize audit config: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Item returns the whitelisted item with the given id, or nil.
func (c *Config) Item(itemID string) *ConfigItem {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}
