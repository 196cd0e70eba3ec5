package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")

	ErrTournamentCompleted = errors.New("tournament is already completed")
	ErrForbiddenOperation  = errors.New("operation not allowed for the current user")
)

// Не найдено
var (
	ErrTournamentNotFound  = fmt.Errorf("tournament %w", ErrNotFound)
	ErrRoundNotFound       = fmt.Errorf("round %w", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("match %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
)

// Ошибки валидации и бизнес-правил
var (
	ErrTournamentNameRequired    = fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	ErrTournamentInvalidFormat   = fmt.Errorf("%w: unknown tournament format", ErrValidationFailed)
	ErrTournamentInvalidCapacity = fmt.Errorf("%w: max participants must be at least 2", ErrValidationFailed)
	ErrInvalidReseedMethod       = fmt.Errorf("%w: unknown reseed method", ErrValidationFailed)
	ErrTournamentNotStartable    = fmt.Errorf("%w: tournament is not open for starting", ErrValidationFailed)
	ErrTournamentNotInProgress   = fmt.Errorf("%w: tournament is not in progress", ErrValidationFailed)
	ErrRegistrationClosed        = fmt.Errorf("%w: tournament registration is closed", ErrValidationFailed)
	ErrTournamentFull            = fmt.Errorf("%w: tournament registration is full", ErrValidationFailed)
	ErrInvalidPosition           = fmt.Errorf("%w: position must be PRO or CON", ErrValidationFailed)
	ErrPositionRequired          = fmt.Errorf("%w: championship participants must select a position", ErrValidationFailed)
	ErrInvalidOutcome            = fmt.Errorf("%w: debate outcome does not match the match", ErrValidationFailed)
	ErrNoJudges                  = fmt.Errorf("%w: judge pool is empty", ErrValidationFailed)
)

// Конфликты
var (
	ErrRegistrationConflict   = fmt.Errorf("%w: user is already registered for this tournament", ErrConflict)
	ErrTournamentNameConflict = fmt.Errorf("%w: tournament name already exists", ErrConflict)
)
