package follow

import "errors"

var (
	// ErrNoPoseSource reports a configuration without a pose source.
	ErrNoPoseSource = errors.New("follow: pose source is required")

	// ErrModeConflict reports a configuration that does not select exactly
	// one output mode: both consumers, neither, or a chassis consumer
	// mixed with wheel-mode parameters.
	ErrModeConflict = errors.New("follow: configuration must select exactly one output mode")

	// ErrIncompleteWheelMode reports a wheel-speed consumer supplied
	// without the kinematics and positive speed cap it requires.
	ErrIncompleteWheelMode = errors.New("follow: wheel output requires kinematics and a positive speed cap")

	// ErrInvalidSample reports a non-finite reference state from the
	// trajectory sampler.
	ErrInvalidSample = errors.New("follow: trajectory sample is not finite")

	// ErrInvalidPose reports a non-finite pose from the pose source.
	ErrInvalidPose = errors.New("follow: pose is not finite")
)
