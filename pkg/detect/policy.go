package detect

// PolicyEvaluator decides whether sensitive features (payments, rankings,
// trades) should be restricted. Emulators alone are tolerated; root is
// not, on either emulated or physical hardware.
type PolicyEvaluator struct{}

func NewPolicyEvaluator() *PolicyEvaluator {
	return &PolicyEvaluator{}
}

func (p *PolicyEvaluator) Decide(emulator bool, root RootVerdict) PolicyDecision {
	if !root.Rooted {
		return PolicyDecision{}
	}
	if emulator {
		return PolicyDecision{Restrict: true, Reason: "emulator is rooted: " + root.Reason}
	}
	return PolicyDecision{Restrict: true, Reason: "device is rooted: " + root.Reason}
}
