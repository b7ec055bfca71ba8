package engine

import (
	"log"

	"github.com/ivlev/timeline/internal/scene"
)

// ProbeFunc returns the playback length of a media file in seconds.
type ProbeFunc func(path string) (float64, error)

// ProbeMedia fills in missing media durations of video and audio elements,
// audio tracks and scene clips. Failures are logged and leave the value
// unset. It returns the number of durations filled in.
func ProbeMedia(p *scene.Project, probe ProbeFunc) int {
	cache := map[string]float64{}
	measure := func(src string) (float64, bool) {
		if d, ok := cache[src]; ok {
			return d, d > 0
		}
		d, err := probe(src)
		if err != nil {
			log.Printf("[!] Не удалось получить длительность %s: %v", src, err)
			d = 0
		}
		cache[src] = d
		return d, d > 0
	}

	filled := 0
	for i := range p.Scenes {
		s := &p.Scenes[i]
		for _, el := range s.Elements {
			switch m := el.Props.(type) {
			case *scene.VideoProps:
				if m.MediaDuration <= 0 && m.Src != "" {
					if d, ok := measure(m.Src); ok {
						m.MediaDuration = d
						filled++
					}
				}
			case *scene.AudioProps:
				if m.MediaDuration <= 0 && m.Src != "" {
					if d, ok := measure(m.Src); ok {
						m.MediaDuration = d
						filled++
					}
				}
			}
		}
		for j := range s.AudioTracks {
			tr := &s.AudioTracks[j]
			if tr.Duration <= 0 && tr.Src != "" {
				if d, ok := measure(tr.Src); ok {
					tr.Duration = d
					filled++
				}
			}
		}
		if s.Audio != nil && s.Audio.Duration <= 0 && s.Audio.Src != "" {
			if d, ok := measure(s.Audio.Src); ok {
				s.Audio.Duration = d
				filled++
			}
		}
	}
	return filled
}
