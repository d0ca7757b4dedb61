package config

import "time"

const (
	// Reputation
	InitialRating        = 1000
	PositiveReactionGain = 5
	NegativeReactionLoss = 3
	ReactorParticipation = 1

	// Warnings
	WarningThreshold   = 3
	MaxWarningSeverity = 3

	// Votes
	VoteWindow        = 5 * time.Minute
	VoteRefreshPeriod = 30 * time.Second
	QuorumFloor       = 3
	QuorumShare       = 0.3
	MinVoteDuration   = 1     // minutes
	MaxVoteDuration   = 10080 // minutes, 7 days
)

// PositiveReactions and NegativeReactions classify reaction emoji.
// Anything outside both sets counts as neutral and leaves the rating alone.
var PositiveReactions = map[string]struct{}{
	"👍": {}, "❤️": {}, "🔥": {}, "🎉": {}, "😁": {}, "🏆": {}, "💯": {},
}

var NegativeReactions = map[string]struct{}{
	"👎": {}, "💩": {}, "🤮": {}, "🤬": {}, "😡": {},
}
