package contracts

import "errors"

// ⭐ SSOT: 도메인 공통 에러는 여기서만 정의
var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a unique key would be duplicated
	ErrAlreadyExists = errors.New("already exists")
)
