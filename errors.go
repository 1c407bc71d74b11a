package box2

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrNotSetup is returned by Teardown when Setup was never invoked.
	ErrNotSetup = errors.New("box2: format not set up")

	// ErrRegistryOpen is returned when the key registry cannot be opened.
	ErrRegistryOpen = errors.New("box2: could not open key registry")

	// ErrEmptyRecipients is returned when encryption resolves zero key slots.
	ErrEmptyRecipients = errors.New("box2: no keys found for recipients")

	// ErrTooManyRecipients is returned when a recipient set exceeds 16 slots.
	ErrTooManyRecipients = errors.New("box2: too many recipients, maximum 16")

	// ErrMultipleGroupRecipients is returned when a recipient set names more
	// than one group.
	ErrMultipleGroupRecipients = errors.New("box2: only one group recipient allowed")

	// ErrUnsupportedRecipient is returned for a recipient descriptor that
	// cannot be resolved to an encryption key.
	ErrUnsupportedRecipient = errors.New("box2: no keys found for recipient")

	// ErrNoDMKey is returned when no pairwise key can be resolved for a DM
	// counterpart under the active mode. Retrying does not help; new
	// triangulation data is needed first.
	ErrNoDMKey = errors.New("box2: no DM key for counterpart")

	// ErrMissingGroupID is returned when a group operation is given an
	// empty group id.
	ErrMissingGroupID = errors.New("box2: missing group id")

	// ErrLegacyModeLocked is returned when DisableLegacyMode is called
	// after the first encrypt or decrypt.
	ErrLegacyModeLocked = errors.New("box2: legacy mode cannot change after first use")
)

// RegistryOpenError reports a failure to open the key registry at a path.
type RegistryOpenError struct {
	Path string
	Err  error
}

func (e *RegistryOpenError) Error() string {
	return fmt.Sprintf("box2: could not open key registry at %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistryOpenError) Unwrap() error { return e.Err }

// Is implements errors.Is for sentinel error matching.
func (e *RegistryOpenError) Is(target error) bool { return target == ErrRegistryOpen }

// TooManyRecipientsError reports a recipient set over the slot limit.
type TooManyRecipientsError struct {
	Count int
}

func (e *TooManyRecipientsError) Error() string {
	return fmt.Sprintf("box2: %d recipients resolved, maximum 16", e.Count)
}

// Is implements errors.Is for sentinel error matching.
func (e *TooManyRecipientsError) Is(target error) bool { return target == ErrTooManyRecipients }

// MultipleGroupRecipientsError reports more than one group recipient.
type MultipleGroupRecipientsError struct {
	Count int
}

func (e *MultipleGroupRecipientsError) Error() string {
	return fmt.Sprintf("box2: %d group recipients given, only one group recipient allowed", e.Count)
}

// Is implements errors.Is for sentinel error matching.
func (e *MultipleGroupRecipientsError) Is(target error) bool {
	return target == ErrMultipleGroupRecipients
}

// UnsupportedRecipientError reports a recipient that could not be resolved.
type UnsupportedRecipientError struct {
	Recipient Recipient
}

func (e *UnsupportedRecipientError) Error() string {
	return fmt.Sprintf("box2: no keys found for recipient %s", e.Recipient)
}

// Is implements errors.Is for sentinel error matching.
func (e *UnsupportedRecipientError) Is(target error) bool { return target == ErrUnsupportedRecipient }

// NoDMKeyError reports a DM counterpart with no resolvable pairwise key.
type NoDMKeyError struct {
	Counterpart string
}

func (e *NoDMKeyError) Error() string {
	return fmt.Sprintf("box2: no DM key for counterpart %s", e.Counterpart)
}

// Is implements errors.Is for sentinel error matching.
func (e *NoDMKeyError) Is(target error) bool { return target == ErrNoDMKey }
