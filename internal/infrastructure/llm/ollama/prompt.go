package ollama

import (
	"fmt"
	"strings"
)

func buildRoomPrompt(roomName string, extended bool) string {
	name := strings.TrimSpace(roomName)
	if name == "" {
		name = "unnamed room"
	}
	const maxName = 120
	if len(name) > maxName {
		name = name[:maxName]
	}

	reasoning := "reasoning (string, one or two sentences)"
	if extended {
		reasoning = "reasoning (string, a short paragraph that justifies each class and each feature you report)"
	}

	return fmt.Sprintf(`You are estimating a property cleanout job from a single photo of one room.
Room label given by the crew: %q.

Classify the room on two axes.
size_class is the physical scale of the space:
- small: closet, bathroom, pantry, small storage unit
- medium: typical bedroom, office, small kitchen
- large: living room, large kitchen, master bedroom, one-car garage
- extra_large: basement, attic, two-car garage, open warehouse space

workload_class is how much effort removing the contents takes:
- light: mostly empty, a few items, clear floor
- moderate: normally furnished, some boxes, floor mostly visible
- heavy: densely packed, little floor visible, bulky furniture
- extreme: floor to ceiling clutter, hoarding conditions, blocked access

Return a strict JSON object with keys:
size_class (one of small, medium, large, extra_large),
workload_class (one of light, moderate, heavy, extreme),
confidence (number from 0 to 1),
%s,
features (object with clutter_density 0-10, accessibility "easy"|"moderate"|"difficult",
stairs_required boolean, hazmat_present boolean, salvage_potential "none"|"low"|"medium"|"high",
item_categories array of strings).
No markdown, no extra keys.
`, name, reasoning)
}
