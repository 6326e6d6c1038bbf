package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	for _, target := range retriableKinds {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err means the market cannot be trusted until it is
// rebuilt from a fresh instrument account.
func IsFatal(err error) bool {
	for _, target := range fatalKinds {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var (
	// ErrMalformedAccount is returned when account bytes are too short or carry an unexpected type tag.
	ErrMalformedAccount = errors.New("malformed account")

	// ErrUnsupportedInstrument is returned for an unknown layout version or curve kind.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")

	// ErrMissingAccount is returned when a required token account has never been supplied.
	ErrMissingAccount = errors.New("missing account")

	// ErrStateInconsistency is returned when accounts decode but disagree with each other.
	ErrStateInconsistency = errors.New("state inconsistency")

	// ErrMintMismatch is returned when a quote names a mint that is not a leg of the market.
	ErrMintMismatch = errors.New("mint mismatch")

	// ErrZeroAmount is returned for a zero input amount.
	ErrZeroAmount = errors.New("zero amount")

	// ErrInsufficientLiquidity is returned when the market cannot fill the requested size.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrExactOutUnsupported is returned for exact-output quote requests.
	ErrExactOutUnsupported = errors.New("exact out not supported")

	// ErrOutputTooSmall is returned when the output rounds down to zero.
	ErrOutputTooSmall = errors.New("output too small")

	// ErrArithmeticOverflow is returned when an intermediate value exceeds 256 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrInstrumentIDOutOfRange is returned when an instrument id cannot be encoded.
	ErrInstrumentIDOutOfRange = errors.New("instrument id out of range")

	// ErrAccountNotFound is returned by fetchers that have no bytes for an address.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// Per-request errors: the market stays usable and the caller may try again
// with other inputs or after the next refresh.
var retriableKinds = []error{
	ErrMissingAccount,
	ErrMintMismatch,
	ErrZeroAmount,
	ErrInsufficientLiquidity,
	ErrOutputTooSmall,
	ErrAccountNotFound,
}

var fatalKinds = []error{
	ErrMalformedAccount,
	ErrUnsupportedInstrument,
	ErrStateInconsistency,
}

// AccountError attaches the failing operation and account address to a decode
// or refresh failure.
type AccountError struct {
	Op      string // Operation that failed (e.g., "decode_token", "refresh")
	Address string // Base58 account address, empty when unknown
	Err     error
}

func (e *AccountError) Error() string {
	if e.Address == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " [" + e.Address + "]: " + e.Err.Error()
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// NewAccountError wraps err with the operation and address that produced it.
func NewAccountError(op, address string, err error) *AccountError {
	return &AccountError{Op: op, Address: address, Err: err}
}

// FetchError represents a failure outside the adapter while obtaining account bytes
type FetchError struct {
	Op        string
	Err       error
	Retriable bool
}

func (e *FetchError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FetchError) IsRetriable() bool {
	return e.Retriable
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new retriable fetch error
func NewFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err, Retriable: true}
}

// NewFatalFetchError creates a non-retriable fetch error
func NewFatalFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
