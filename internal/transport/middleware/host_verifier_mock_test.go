package middleware

import (
	"sync"
)

var _ hostVerifier = &hostVerifierMock{}

type hostVerifierMock struct {
	VerifyFunc func(token string) (string, error)

	calls struct {
		Verify []struct {
			Token string
		}
	}
	lockVerify sync.RWMutex
}

func (mock *hostVerifierMock) Verify(token string) (string, error) {
	if mock.VerifyFunc == nil {
		panic("hostVerifierMock.VerifyFunc: method is nil but hostVerifier.Verify was just called")
	}
	callInfo := struct {
		Token string
	}{Token: token}
	mock.lockVerify.Lock()
	mock.calls.Verify = append(mock.calls.Verify, callInfo)
	mock.lockVerify.Unlock()
	return mock.VerifyFunc(token)
}

func (mock *hostVerifierMock) VerifyCalls() []struct {
	Token string
} {
	mock.lockVerify.RLock()
	calls := mock.calls.Verify
	mock.lockVerify.RUnlock()
	return calls
}
