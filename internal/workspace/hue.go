package workspace

import (
	"hash/fnv"

	"github.com/lucasb-eyer/go-colorful"
)

// NameToHue picks a stable hue for a group name. The hue is chosen
// uniformly in a perceptual space between 60 and 310 degrees, away from the
// red used for ephemeral nodes, and converted to an HSL hue.
func NameToHue(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	uniform := float64(h.Sum32()%250) + 60

	hue, _, _ := colorful.Hcl(uniform, 1.28, 1.0).Clamped().Hsl()
	return int(hue) % 360
}
