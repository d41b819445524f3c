package streams

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var audioTrack = Stream{Kind: KindAudio, Quality: "192k", Codec: "mp4a", URL: "https://cdn.example.com/a.m4s", Bandwidth: 192000}

func TestSelectTiering(t *testing.T) {
	candidates := []Stream{
		{Kind: KindVideo, Quality: "1080p", Codec: "hevc", URL: "v1", Bandwidth: 5000},
		{Kind: KindVideo, Quality: "1080p", Codec: "avc", URL: "v2", Bandwidth: 4500},
		{Kind: KindVideo, Quality: "720p", Codec: "avc", URL: "v3", Bandwidth: 3000},
		audioTrack,
	}
	prefs := SelectionPreferences{Quality: []string{"1080p", "720p"}, Codec: []string{"avc", "hevc"}}

	video, audio, err := Select(candidates, prefs)
	require.NoError(t, err)
	assert.Equal(t, "1080p", video.Quality)
	assert.Equal(t, "avc", video.Codec)
	assert.Equal(t, int64(4500), video.Bandwidth)
	assert.Equal(t, audioTrack, audio)

	prefs.Codec = []string{"hevc", "avc"}
	video, _, err = Select(candidates, prefs)
	require.NoError(t, err)
	assert.Equal(t, "v1", video.URL)
}

func TestSelectQualitySubstringAndCodecCase(t *testing.T) {
	candidates := []Stream{
		{Kind: KindVideo, Quality: "1080p60 HDR", Codec: "AVC1.640032", URL: "hdr", Bandwidth: 9000},
		{Kind: KindVideo, Quality: "720p", Codec: "avc1", URL: "720", Bandwidth: 3000},
		audioTrack,
	}
	video, _, err := Select(candidates, SelectionPreferences{Quality: []string{"1080p"}, Codec: []string{"avc"}})
	require.NoError(t, err)
	assert.Equal(t, "hdr", video.URL)
}

func TestSelectQualityOnlyTier(t *testing.T) {
	candidates := []Stream{
		{Kind: KindVideo, Quality: "1080p", Codec: "av01", URL: "av1", Bandwidth: 4000},
		{Kind: KindVideo, Quality: "720p", Codec: "avc", URL: "avc", Bandwidth: 3000},
		audioTrack,
	}
	video, _, err := Select(candidates, SelectionPreferences{Quality: []string{"1080p"}, Codec: []string{"hevc"}})
	require.NoError(t, err)
	assert.Equal(t, "av1", video.URL)
}

func TestSelectBandwidthFallback(t *testing.T) {
	candidates := []Stream{
		{Kind: KindVideo, Quality: "480p", Codec: "avc", URL: "480", Bandwidth: 1000},
		audioTrack,
	}
	video, _, err := Select(candidates, SelectionPreferences{Quality: []string{"4k", "1080p"}})
	require.NoError(t, err)
	assert.Equal(t, "480p", video.Quality)

	video, _, err = Select(candidates, SelectionPreferences{})
	require.NoError(t, err)
	assert.Equal(t, "480", video.URL)
}

func TestSelectBandwidthTieKeepsEarliest(t *testing.T) {
	candidates := []Stream{
		{Kind: KindVideo, Quality: "720p", URL: "first", Bandwidth: 3000},
		{Kind: KindVideo, Quality: "720p", URL: "second", Bandwidth: 3000},
		{Kind: KindAudio, URL: "a1", Bandwidth: 128000},
		{Kind: KindAudio, URL: "a2", Bandwidth: 128000},
	}
	video, audio, err := Select(candidates, SelectionPreferences{})
	require.NoError(t, err)
	assert.Equal(t, "first", video.URL)
	assert.Equal(t, "a1", audio.URL)
}

func TestSelectEmptySets(t *testing.T) {
	video := Stream{Kind: KindVideo, Quality: "720p", URL: "v", Bandwidth: 3000}

	_, _, err := Select([]Stream{video}, SelectionPreferences{})
	assert.ErrorIs(t, err, ErrNoAudioStream)

	_, _, err = Select([]Stream{audioTrack}, SelectionPreferences{})
	assert.ErrorIs(t, err, ErrNoVideoStream)

	assert.NotErrorIs(t, ErrNoAudioStream, ErrNoVideoStream)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.yaml")
	content := `streams:
  - kind: Video
    quality: 1080p
    codec: avc
    url: https://cdn.example.com/v.m4s
    bandwidth: 4500000
    size: 1024
  - kind: audio
    quality: 192k
    codec: mp4a
    url: https://cdn.example.com/a.m4s
    bandwidth: 192000
preferences:
  quality: [1080p, 720p]
  codec: [avc]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	candidates, prefs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, KindVideo, candidates[0].Kind)
	assert.Equal(t, int64(1024), candidates[0].Size)
	assert.Equal(t, []string{"1080p", "720p"}, prefs.Quality)
	assert.Equal(t, []string{"avc"}, prefs.Codec)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.json")
	content := `{"streams": [{"kind": "audio", "url": "https://cdn.example.com/a", "bandwidth": 64000}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	candidates, _, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, KindAudio, candidates[0].Kind)
}

func TestLoadFileRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("streams:\n  - kind: subtitle\n    url: x\n"), 0644))
	_, _, err := LoadFile(path)
	assert.Error(t, err)
}
