package streams

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Select picks one video and one audio stream. Video goes through three
// tiers: quality and codec together, quality alone, then highest bandwidth.
// Audio is always the highest bandwidth. Quality matches are substring
// matches so "1080p" finds "1080p60 HDR"; codec matches ignore case.
func Select(candidates []Stream, prefs SelectionPreferences) (Stream, Stream, error) {
	var videos, audios []Stream
	for _, s := range candidates {
		switch s.Kind {
		case KindVideo:
			videos = append(videos, s)
		case KindAudio:
			audios = append(audios, s)
		}
	}
	if len(videos) == 0 {
		return Stream{}, Stream{}, ErrNoVideoStream
	}
	if len(audios) == 0 {
		return Stream{}, Stream{}, ErrNoAudioStream
	}
	video := selectVideo(videos, prefs)
	audio := highestBandwidth(audios)
	log.Debug().Str("op", "streams/select").Msgf("selected video %s, audio %s", video, audio)
	return video, audio, nil
}

func selectVideo(videos []Stream, prefs SelectionPreferences) Stream {
	for _, quality := range prefs.Quality {
		for _, codec := range prefs.Codec {
			for _, s := range videos {
				if strings.Contains(s.Quality, quality) && strings.Contains(strings.ToLower(s.Codec), strings.ToLower(codec)) {
					return s
				}
			}
		}
	}
	for _, quality := range prefs.Quality {
		for _, s := range videos {
			if strings.Contains(s.Quality, quality) {
				return s
			}
		}
	}
	log.Debug().Str("op", "streams/select").Msg("no preferred quality matched, falling back to highest bandwidth")
	return highestBandwidth(videos)
}

// highestBandwidth keeps the earliest stream on ties.
func highestBandwidth(streams []Stream) Stream {
	best := streams[0]
	for _, s := range streams[1:] {
		if s.Bandwidth > best.Bandwidth {
			best = s
		}
	}
	return best
}
