/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// RoleCategory is one of the four fixed groupings every role set uses.
type RoleCategory string

const (
	CategoryTownsfolk RoleCategory = "townsfolk"
	CategoryOutsider  RoleCategory = "outsider"
	CategoryMinion    RoleCategory = "minion"
	CategoryDemon     RoleCategory = "demon"
)

var roleCategories = []RoleCategory{
	CategoryTownsfolk,
	CategoryOutsider,
	CategoryMinion,
	CategoryDemon,
}

// RoleDef is a single role definition from the reference catalog. Immutable
// once loaded.
type RoleDef struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    RoleCategory `json:"category"`
}

// RoleSet is a named catalog of role definitions across the four categories.
type RoleSet struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Roles []RoleDef `json:"roles"`
}

// find returns the canonical definition matching name and category.
func (rs *RoleSet) find(name string, category RoleCategory) (RoleDef, bool) {
	for _, def := range rs.Roles {
		if def.Name == name && def.Category == category {
			return def, true
		}
	}
	return RoleDef{}, false
}

// RoleCatalog is the process-lifetime set of role sets. Read-only after load.
type RoleCatalog struct {
	defaultID string
	sets      map[string]*RoleSet
	order     []string
}

func (rc *RoleCatalog) set(id string) (*RoleSet, bool) {
	rs, ok := rc.sets[id]
	return rs, ok
}

func (rc *RoleCatalog) list() []*RoleSet {
	out := make([]*RoleSet, 0, len(rc.order))
	for _, id := range rc.order {
		out = append(out, rc.sets[id])
	}
	return out
}

//go:embed rolesets.json
var defaultRoleSets []byte

type catalogFile struct {
	Default string `json:"default"`
	Sets    []struct {
		ID    string                     `json:"id"`
		Name  string                     `json:"name"`
		Roles map[RoleCategory][]roleDef `json:"roles"`
	} `json:"sets"`
}

type roleDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// loadCatalog parses and validates role-set data. Any malformed entry is a
// startup-fatal error; the server never runs with a partial catalog.
func loadCatalog(data []byte) (*RoleCatalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("role-set catalog: %w", err)
	}

	if len(file.Sets) == 0 {
		return nil, fmt.Errorf("role-set catalog: no sets defined")
	}

	rc := &RoleCatalog{
		defaultID: file.Default,
		sets:      make(map[string]*RoleSet, len(file.Sets)),
	}

	for _, set := range file.Sets {
		if set.ID == "" {
			return nil, fmt.Errorf("role-set catalog: set with empty id")
		}
		if _, dup := rc.sets[set.ID]; dup {
			return nil, fmt.Errorf("role-set catalog: duplicate set %q", set.ID)
		}

		rs := &RoleSet{
			ID:   set.ID,
			Name: set.Name,
		}

		for category := range set.Roles {
			known := false
			for _, c := range roleCategories {
				if c == category {
					known = true
					break
				}
			}
			if !known {
				return nil, fmt.Errorf("role-set catalog: set %q has unknown category %q", set.ID, category)
			}
		}

		// Flatten in fixed category order so the catalog is deterministic.
		for _, category := range roleCategories {
			for _, def := range set.Roles[category] {
				if def.Name == "" {
					return nil, fmt.Errorf("role-set catalog: set %q has unnamed role in %q", set.ID, category)
				}
				if _, exists := rs.find(def.Name, category); exists {
					return nil, fmt.Errorf("role-set catalog: set %q has duplicate role %q in %q", set.ID, def.Name, category)
				}
				rs.Roles = append(rs.Roles, RoleDef{
					Name:        def.Name,
					Description: def.Description,
					Category:    category,
				})
			}
		}

		rc.sets[set.ID] = rs
		rc.order = append(rc.order, set.ID)
	}

	if _, ok := rc.sets[rc.defaultID]; !ok {
		return nil, fmt.Errorf("role-set catalog: default set %q not defined", rc.defaultID)
	}

	return rc, nil
}

// catalogFromConfig loads the operator-supplied catalog file if one was
// given, falling back to the embedded default.
func catalogFromConfig(cfg *Config) (*RoleCatalog, error) {
	data := defaultRoleSets

	if cfg.roleSets != "" {
		var err error
		data, err = os.ReadFile(cfg.roleSets)
		if err != nil {
			return nil, err
		}
	}

	return loadCatalog(data)
}
