package tensor

var (
	// ErrAllocation reports that a backing buffer could not be obtained.
	ErrAllocation = tensorError("tensor: allocation failed")
	// ErrTypeMismatch reports an element type that does not satisfy an
	// operation's precondition.
	ErrTypeMismatch = tensorError("tensor: element type mismatch")
	// ErrShapeMismatch reports element counts that disagree where equality is required.
	ErrShapeMismatch = tensorError("tensor: element count mismatch")
	// ErrInvalidScale reports a quantization scale that is zero, NaN or infinite.
	ErrInvalidScale = tensorError("tensor: invalid scale")
	// ErrReleased reports use of a tensor after Release.
	ErrReleased = tensorError("tensor: use after release")
	// ErrIndexOutOfRange reports an element index >= Len().
	ErrIndexOutOfRange = tensorError("tensor: index out of range")
)

type tensorError string

func (e tensorError) Error() string { return string(e) }
