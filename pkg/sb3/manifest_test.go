package sb3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const costumeA = "0123456789abcdef0123456789abcdef"
const costumeB = "fedcba9876543210fedcba9876543210"
const soundA = "00112233445566778899aabbccddeeff"

func TestParseAndAssetFiles(t *testing.T) {
	manifest := `{
		"targets": [
			{
				"isStage": true,
				"name": "Stage",
				"costumes": [{"assetId": "` + costumeA + `", "md5ext": "` + costumeA + `.svg", "dataFormat": "svg"}],
				"sounds": [{"assetId": "` + soundA + `", "md5ext": "` + soundA + `.wav", "dataFormat": "wav"}]
			},
			{
				"isStage": false,
				"name": "Sprite1",
				"costumes": [
					{"assetId": "` + costumeA + `", "md5ext": "` + costumeA + `.svg"},
					{"assetId": "` + costumeB + `", "md5ext": "` + costumeB + `.png", "dataFormat": "png"}
				],
				"sounds": []
			}
		]
	}`

	m, err := Parse([]byte(manifest))
	require.NoError(t, err)
	require.Len(t, m.Targets, 2)

	files := m.AssetFiles()
	// costumeA appears in two targets but is listed once.
	assert.Equal(t, []string{
		soundA + ".wav",
		costumeA + ".svg",
		costumeB + ".png",
	}, files)
}

func TestAssetFileNameDefaults(t *testing.T) {
	costume := Asset{AssetID: costumeA}
	assert.Equal(t, costumeA+".svg", costume.FileName(false))

	sound := Asset{AssetID: soundA}
	assert.Equal(t, soundA+".wav", sound.FileName(true))

	withFormat := Asset{AssetID: costumeA, DataFormat: "png"}
	assert.Equal(t, costumeA+".png", withFormat.FileName(false))

	md5extWins := Asset{AssetID: costumeA, MD5Ext: costumeB + ".svg", DataFormat: "png"}
	assert.Equal(t, costumeB+".svg", md5extWins.FileName(false))

	empty := Asset{}
	assert.Equal(t, "", empty.FileName(false))
}

func TestAssetFilesSkipsInvalidEntries(t *testing.T) {
	manifest := `{
		"targets": [
			{
				"costumes": [
					{"md5ext": "../../evil.svg"},
					{"md5ext": "` + costumeA + `.svg"},
					{}
				],
				"sounds": []
			}
		]
	}`

	m, err := Parse([]byte(manifest))
	require.NoError(t, err)

	assert.Equal(t, []string{costumeA + ".svg"}, m.AssetFiles())
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("not json"))
	require.Error(t, err)
}
