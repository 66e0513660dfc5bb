package core

import (
	"errors"
	"fmt"
)

// ErrorKind 采集失败的分类
type ErrorKind int

const (
	KindConnectionFailure ErrorKind = iota + 1
	KindHistoryCorrupted
	KindReplicationConflict
	KindReplicationReplaying
	KindEmptyResult
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectionFailure:
		return "connection failure"
	case KindHistoryCorrupted:
		return "administrative history corrupted"
	case KindReplicationConflict:
		return "replication conflict"
	case KindReplicationReplaying:
		return "replication replaying"
	case KindEmptyResult:
		return "empty result"
	case KindTimeout:
		return "timeout"
	default:
		return "collection error"
	}
}

// 与 errors.Is 配合使用的哨兵错误，每种分类一个
var (
	ErrConnectionFailure    = &CollectionError{Kind: KindConnectionFailure}
	ErrHistoryCorrupted     = &CollectionError{Kind: KindHistoryCorrupted}
	ErrReplicationConflict  = &CollectionError{Kind: KindReplicationConflict}
	ErrReplicationReplaying = &CollectionError{Kind: KindReplicationReplaying}
	ErrEmptyResult          = &CollectionError{Kind: KindEmptyResult}
	ErrTimeout              = &CollectionError{Kind: KindTimeout}
)

// CollectionError 采集失败。采集器只返回这种错误，不会 panic 或者向上抛出驱动错误。
type CollectionError struct {
	Kind   ErrorKind
	Metric string
	Err    error
}

// NewCollectionError 构造带分类的采集错误
func NewCollectionError(kind ErrorKind, metric string, err error) *CollectionError {
	return &CollectionError{Kind: kind, Metric: metric, Err: err}
}

func (e *CollectionError) Error() string {
	switch {
	case e.Metric != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Metric, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Metric != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Metric)
	default:
		return e.Kind.String()
	}
}

func (e *CollectionError) Unwrap() error { return e.Err }

// Is 只比较分类，使 errors.Is(err, ErrTimeout) 成立
func (e *CollectionError) Is(target error) bool {
	t, ok := target.(*CollectionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf 返回错误的分类，非 CollectionError 返回 0
func KindOf(err error) ErrorKind {
	var ce *CollectionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
