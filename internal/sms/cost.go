package sms

// segmentSize is the character budget of a single SMS segment.
const segmentSize = 160

// costPerSegmentKES is a flat informational rate; cost estimates never
// drive delivery decisions.
const costPerSegmentKES = 1

// Cost is an informational delivery cost estimate.
type Cost struct {
	Segments         int    `json:"segments"`
	EstimatedCostKES int    `json:"estimatedCostKES"`
	Currency         string `json:"currency"`
	CharacterCount   int    `json:"characterCount"`
}

// EstimateCost segments the message every 160 characters at a flat rate per
// segment.
func EstimateCost(message string) Cost {
	segments := (len(message) + segmentSize - 1) / segmentSize
	if segments == 0 {
		segments = 1
	}
	return Cost{
		Segments:         segments,
		EstimatedCostKES: segments * costPerSegmentKES,
		Currency:         "KES",
		CharacterCount:   len(message),
	}
}
