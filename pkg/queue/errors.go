package queue

import "errors"

var (
	ErrRepositoryNil          = errors.New("repository cannot be nil")
	ErrActionNameEmpty        = errors.New("action name cannot be empty")
	ErrArgsMarshal            = errors.New("failed to marshal action arguments")
	ErrTaskNil                = errors.New("task cannot be nil")
	ErrTaskExists             = errors.New("task already exists")
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskNotProcessing      = errors.New("task is not in processing state")
	ErrNoTaskToClaim          = errors.New("no task available to claim")
	ErrHandlerNotFound        = errors.New("no handler registered for action")
	ErrNoHandlers             = errors.New("no action handlers registered")
	ErrTaskAlreadyRegistered  = errors.New("periodic task already registered")
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")
	ErrWorkerAlreadyStarted   = errors.New("worker already started")
	ErrWorkerNotStarted       = errors.New("worker not started")
)
