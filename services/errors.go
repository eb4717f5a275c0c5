package services

import "errors"

// Sentinel errors returned by the services. Handlers map them onto HTTP
// statuses with errors.Is.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("permission denied")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidFileType = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidPDF      = errors.New("invalid PDF file")
	ErrInvalidImage    = errors.New("invalid image file")
	ErrFileMissing     = errors.New("stored file is missing")
	ErrInvalidTag      = errors.New("tag name is empty or too long")

	ErrNotMember          = errors.New("not a member of this group")
	ErrAlreadyMember      = errors.New("already a member of this group")
	ErrGroupIsPrivate     = errors.New("group is private, send a join request instead")
	ErrGroupIsPublic      = errors.New("group is public, join it directly")
	ErrJoinRequestPending = errors.New("a join request is already pending")
	ErrRequestNotPending  = errors.New("join request has already been decided")
	ErrSoleCreatorMember  = errors.New("the creator cannot leave while being the only member")

	ErrInvalidStatus   = errors.New("invalid question status")
	ErrInvalidPriority = errors.New("invalid question priority")
)
