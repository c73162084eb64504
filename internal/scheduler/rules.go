package scheduler

// RuleKind enumerates the closed set of notification rules. The tick
// dispatcher iterates tickRules; RuleFirstProductive is event-triggered
// and never evaluated on tick.
type RuleKind int

const (
	RuleMorningBriefing RuleKind = iota
	RuleReadyToStart
	RuleFirstProductive
	RuleOneHourMilestone
	RuleDailyGoal
	RuleDistractionAlert
	RuleEndOfDay
	RuleMeetingSoon
)

// tickRules are evaluated once per tick, in this order. Order does not
// affect correctness; the rules are disjoint in effect.
var tickRules = []RuleKind{
	RuleMorningBriefing,
	RuleReadyToStart,
	RuleOneHourMilestone,
	RuleDailyGoal,
	RuleDistractionAlert,
	RuleEndOfDay,
}

func (k RuleKind) String() string {
	switch k {
	case RuleMorningBriefing:
		return "morning_briefing"
	case RuleReadyToStart:
		return "ready_to_start"
	case RuleFirstProductive:
		return "first_productive"
	case RuleOneHourMilestone:
		return "one_hour_milestone"
	case RuleDailyGoal:
		return "daily_goal"
	case RuleDistractionAlert:
		return "distraction_alert"
	case RuleEndOfDay:
		return "end_of_day"
	case RuleMeetingSoon:
		return "meeting_soon"
	}
	return "unknown"
}
