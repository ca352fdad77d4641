package domain

// Token costs per operation, derived from provider pricing with the product
// markup already applied. Video pricing scales with the duration tier.
const (
	CostProductImage   = 5
	CostProductVideo   = 20
	CostContentPost    = 10
	CostCompositeVideo = 40
	CostAudioClip      = 8
)

// videoTierCosts prices video generation by requested duration.
var videoTierCosts = map[int]int{
	5:  CostProductVideo,
	10: 35,
	15: 50,
}

// CostFor returns the token cost of a generation request. Unknown durations
// fall back to the base video price; composite posts always pay the
// high-fidelity rate.
func CostFor(kind MediaKind, post PostType, durationSeconds int) int {
	switch kind {
	case MediaVideo:
		if post == PostComposite {
			return CostCompositeVideo
		}
		if cost, ok := videoTierCosts[durationSeconds]; ok {
			return cost
		}
		return CostProductVideo
	case MediaAudio:
		return CostAudioClip
	default:
		if post == PostContent {
			return CostContentPost
		}
		return CostProductImage
	}
}
