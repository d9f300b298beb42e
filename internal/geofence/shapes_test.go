package geofence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareZone = `{"shapes": [{"shell": [
	{"lat": 0, "lon": 0}, {"lat": 0, "lon": 10},
	{"lat": 10, "lon": 10}, {"lat": 10, "lon": 0}
]}]}`

func writeShapeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadZoneSets_SortedByThreshold(t *testing.T) {
	dir := t.TempDir()
	writeShapeFile(t, dir, "45_minutes.json", squareZone)
	writeShapeFile(t, dir, "15_minutes.json", squareZone)
	writeShapeFile(t, dir, "30_minutes.json", squareZone)

	zones, err := LoadZoneSets(dir)
	require.NoError(t, err)
	require.Len(t, zones, 3)
	assert.Equal(t, 15, zones[0].Minutes)
	assert.Equal(t, 30, zones[1].Minutes)
	assert.Equal(t, 45, zones[2].Minutes)
	require.Len(t, zones[0].Shapes, 1)
	assert.Len(t, zones[0].Shapes[0].Shell, 4)
}

func TestLoadZoneSets_NameWithoutThreshold(t *testing.T) {
	dir := t.TempDir()
	writeShapeFile(t, dir, "zone.json", squareZone)

	_, err := LoadZoneSets(dir)
	assert.Error(t, err)
}

func TestLoadZoneSets_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeShapeFile(t, dir, "15_minutes.json", "{not json")

	_, err := LoadZoneSets(dir)
	assert.Error(t, err)
}

func TestLoadZoneSets_EmptyDirectory(t *testing.T) {
	zones, err := LoadZoneSets(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestLoadExclusionShapes(t *testing.T) {
	dir := t.TempDir()
	writeShapeFile(t, dir, "flood_risk.json", squareZone)

	shapes, err := LoadExclusionShapes(dir)
	require.NoError(t, err)
	assert.Len(t, shapes, 1)

	// A missing directory means no exclusions are configured.
	shapes, err = LoadExclusionShapes(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, shapes)
}
