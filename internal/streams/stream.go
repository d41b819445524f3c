package streams

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

var (
	ErrNoVideoStream = errors.New("no video stream available")
	ErrNoAudioStream = errors.New("no audio stream available")
)

// Stream is one candidate variant. Bandwidth is in bits per second and a
// zero Size means the producer did not know it.
type Stream struct {
	Kind        Kind   `yaml:"kind" json:"kind"`
	Quality     string `yaml:"quality" json:"quality"`
	QualityRank int    `yaml:"quality_rank" json:"quality_rank"`
	Codec       string `yaml:"codec" json:"codec"`
	URL         string `yaml:"url" json:"url"`
	Bandwidth   int64  `yaml:"bandwidth" json:"bandwidth"`
	Size        int64  `yaml:"size" json:"size"`
}

func (s Stream) String() string {
	return fmt.Sprintf("%s %s/%s @ %d bps", s.Kind, s.Quality, s.Codec, s.Bandwidth)
}

type SelectionPreferences struct {
	Quality []string `yaml:"quality"`
	Codec   []string `yaml:"codec"`
}

type candidateFile struct {
	Streams     []Stream             `yaml:"streams"`
	Preferences SelectionPreferences `yaml:"preferences"`
}

// LoadFile reads a YAML (or JSON) candidates file holding a "streams" list
// and optional default "preferences".
func LoadFile(path string) ([]Stream, SelectionPreferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, SelectionPreferences{}, fmt.Errorf("error reading streams file: %w", err)
	}
	var file candidateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, SelectionPreferences{}, fmt.Errorf("error parsing streams file: %w", err)
	}
	for i, s := range file.Streams {
		kind := Kind(strings.ToLower(string(s.Kind)))
		if kind != KindVideo && kind != KindAudio {
			return nil, SelectionPreferences{}, fmt.Errorf("stream %d: unknown kind %q", i, s.Kind)
		}
		if s.URL == "" {
			return nil, SelectionPreferences{}, fmt.Errorf("stream %d: missing url", i)
		}
		file.Streams[i].Kind = kind
	}
	return file.Streams, file.Preferences, nil
}
