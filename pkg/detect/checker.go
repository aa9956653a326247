package detect

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/devguard/pkg/logger"
)

type correlationKey struct{}

// WithCorrelationID tags ctx so detector log lines can be grouped per
// evaluation.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ensureCorrelationID tags ctx with a fresh id unless it already has one.
func ensureCorrelationID(ctx context.Context) context.Context {
	if CorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.NewString())
}

// Checker is the query API over the detectors. Every call reads live
// device state; nothing is cached between calls.
type Checker struct {
	platform    PlatformFunc
	fingerprint FingerprintReader
	host        HostReporter
	root        *RootDetector
	emulator    *EmulatorDetector
	policy      *PolicyEvaluator
	now         func() time.Time
}

type CheckerDeps struct {
	Platform    PlatformFunc
	Probes      Probes
	Fingerprint FingerprintReader
	Host        HostReporter
}

func NewChecker(deps CheckerDeps, opts ...RootOption) *Checker {
	platform := deps.Platform
	if platform == nil {
		platform = func() Platform { return PlatformOther }
	}
	return &Checker{
		platform:    platform,
		fingerprint: deps.Fingerprint,
		host:        deps.Host,
		root:        NewRootDetector(deps.Probes, platform, opts...),
		emulator:    NewEmulatorDetector(),
		policy:      NewPolicyEvaluator(),
		now:         time.Now,
	}
}

func (c *Checker) readFingerprint(ctx context.Context, platform Platform) DeviceFingerprint {
	if platform != PlatformAndroid || c.fingerprint == nil {
		return DeviceFingerprint{}
	}
	return c.fingerprint.Fingerprint(ctx)
}

func (c *Checker) hostInfo() HostInfo {
	if c.host == nil {
		return HostInfo{}
	}
	return c.host.Host()
}

func (c *Checker) IsRooted(ctx context.Context) RootVerdict {
	return c.root.Evaluate(ensureCorrelationID(ctx))
}

func (c *Checker) EmulatorVerdict(ctx context.Context) EmulatorVerdict {
	ctx = ensureCorrelationID(ctx)
	platform := c.platform()
	return c.emulator.Evaluate(platform, c.readFingerprint(ctx, platform))
}

func (c *Checker) IsEmulator(ctx context.Context) bool {
	return c.EmulatorVerdict(ctx).Emulator
}

func (c *Checker) ShouldRestrictSensitiveFeatures(ctx context.Context) PolicyDecision {
	ctx = ensureCorrelationID(ctx)
	emu := c.EmulatorVerdict(ctx)
	root := c.IsRooted(ctx)
	decision := c.policy.Decide(emu.Emulator, root)
	if decision.Restrict {
		logger.WarnCF("policy", "Restricting sensitive features",
			map[string]interface{}{
				"reason":         decision.Reason,
				"emulator":       emu.Emulator,
				"correlation_id": CorrelationID(ctx),
			})
	}
	return decision
}

// Evaluate takes one full snapshot: the platform, fingerprint and host are
// read once and each detector runs once.
func (c *Checker) Evaluate(ctx context.Context) Report {
	r := Report{
		ID:   uuid.NewString(),
		Time: c.now().UTC(),
	}
	ctx = WithCorrelationID(ctx, r.ID)

	r.Platform = c.platform()
	r.Host = c.hostInfo()
	r.Fingerprint = c.readFingerprint(ctx, r.Platform)
	r.Emulator = c.emulator.Evaluate(r.Platform, r.Fingerprint)
	r.Root = c.root.Evaluate(ctx)
	r.Policy = c.policy.Decide(r.Emulator.Emulator, r.Root)

	logger.InfoCF("checker", "Device evaluated",
		map[string]interface{}{
			"correlation_id": r.ID,
			"platform":       r.Platform.String(),
			"rooted":         r.Root.Rooted,
			"root_reason":    r.Root.Reason,
			"emulator":       r.Emulator.Emulator,
			"restrict":       r.Policy.Restrict,
		})
	return r
}

// DiagnosticSummary returns a single-line, slash-separated description of
// the host and device state for support logs.
func (c *Checker) DiagnosticSummary(ctx context.Context) string {
	return c.Evaluate(ctx).Summary()
}
