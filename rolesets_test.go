/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	catalog, err := loadCatalog(defaultRoleSets)
	require.NoError(t, err)

	assert.Equal(t, "classic", catalog.defaultID)

	classic, ok := catalog.set("classic")
	require.True(t, ok)
	assert.NotEmpty(t, classic.Roles)

	// every role carries one of the four categories
	for _, def := range classic.Roles {
		assert.Contains(t, roleCategories, def.Category)
	}

	_, ok = catalog.set("midnight")
	assert.True(t, ok)
}

func TestCatalogListOrderStable(t *testing.T) {
	catalog, err := loadCatalog(defaultRoleSets)
	require.NoError(t, err)

	sets := catalog.list()
	require.Len(t, sets, 2)
	assert.Equal(t, "classic", sets[0].ID)
	assert.Equal(t, "midnight", sets[1].ID)
}

func TestLoadCatalogRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{`},
		{"no sets", `{"default":"x","sets":[]}`},
		{"missing default", `{"default":"x","sets":[{"id":"y","name":"Y","roles":{}}]}`},
		{"empty set id", `{"default":"","sets":[{"id":"","name":"Y","roles":{}}]}`},
		{"duplicate set", `{"default":"y","sets":[{"id":"y","name":"Y","roles":{}},{"id":"y","name":"Y2","roles":{}}]}`},
		{"unknown category", `{"default":"y","sets":[{"id":"y","name":"Y","roles":{"villain":[{"name":"A"}]}}]}`},
		{"unnamed role", `{"default":"y","sets":[{"id":"y","name":"Y","roles":{"demon":[{"description":"?"}]}}]}`},
		{"duplicate role", `{"default":"y","sets":[{"id":"y","name":"Y","roles":{"demon":[{"name":"A"},{"name":"A"}]}}]}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := loadCatalog([]byte(test.data))
			assert.Error(t, err)
		})
	}
}

func TestRoleSetFind(t *testing.T) {
	catalog, err := loadCatalog(defaultRoleSets)
	require.NoError(t, err)

	classic, _ := catalog.set("classic")

	def, ok := classic.find("Archivist", CategoryTownsfolk)
	require.True(t, ok)
	assert.NotEmpty(t, def.Description)

	_, ok = classic.find("Archivist", CategoryDemon)
	assert.False(t, ok, "match requires both name and category")
}
