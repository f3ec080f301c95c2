package persistent

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leaflink/leaflink"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

const sessionTTL = 30 * 24 * time.Hour // 30 days

type Session struct {
	Id             string    `json:"id"`
	AccountId      string    `json:"accountId"`
	Token          string    `json:"token"`
	Ip             string    `json:"ip"`
	UserAgent      string    `json:"userAgent"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s Session) ToDomain() leaflink.Session {
	return leaflink.Session{
		Id:             s.Id,
		AccountId:      leaflink.AccountId(s.AccountId),
		Token:          s.Token,
		Ip:             s.Ip,
		UserAgent:      s.UserAgent,
		LastAccessedAt: s.LastAccessedAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

// SessionStore resolves bearer tokens into the calling account.
type SessionStore struct {
	Buntdb *buntdb.DB
}

var _ leaflink.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) RegisterNew(ctx context.Context, accountId leaflink.AccountId, ip string, userAgent string) (leaflink.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return leaflink.Session{}, fmt.Errorf("generate token: %w", err)
	}

	session := Session{
		Id:             uuid.New().String(),
		AccountId:      string(accountId),
		Token:          token,
		Ip:             ip,
		UserAgent:      userAgent,
		LastAccessedAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(sessionTTL),
	}
	serializedSession, err := json.Marshal(&session)
	if err != nil {
		return leaflink.Session{}, fmt.Errorf("session serialize: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: sessionTTL}

		_, replaced, err := tx.Set("session_by_id:"+session.Id, session.Token, expireOptions)
		if err != nil {
			return fmt.Errorf("set map session id to auth token: %w", err)
		}
		if replaced {
			return fmt.Errorf("rarest uuid collision '%s' (not possible)", session.Id)
		}

		_, _, err = tx.Set("session:"+session.Token, string(serializedSession), expireOptions)
		if err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
	if err != nil {
		return leaflink.Session{}, fmt.Errorf("bunt update: %w", err)
	}

	logrus.
		WithField("account_id", accountId).
		WithField("session_id", session.Id).
		Infoln("Session created.")
	return session.ToDomain(), nil
}

func (s *SessionStore) ByToken(token string) (leaflink.Session, error) {
	var session Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Get("session:" + token)
		if err != nil {
			return fmt.Errorf("get serialized session: %w", err)
		}
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return leaflink.Session{}, leaflink.ErrSessionNotFound
		}
		return leaflink.Session{}, fmt.Errorf("buntdb view: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) Exists(token string) (bool, error) {
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get("session:" + token)
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, buntdb.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("bunt view: %w", err)
	}
}

// AcquireAndRefresh loads the session behind token and extends its
// lifetime, remembering the latest ip and user agent.
func (s *SessionStore) AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (leaflink.Session, error) {
	var session Session
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Get("session:" + token)
		if err != nil {
			return fmt.Errorf("get serialized session: %w", err)
		}
		var previousSession Session
		if err := json.Unmarshal([]byte(serializedSession), &previousSession); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}

		session = previousSession
		session.Ip = ip
		session.UserAgent = userAgent
		session.LastAccessedAt = time.Now().UTC()
		session.ExpiresAt = time.Now().UTC().Add(sessionTTL)
		refreshed, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("serialize session: %w", err)
		}

		expireOptions := &buntdb.SetOptions{Expires: true, TTL: sessionTTL}
		if _, _, err := tx.Set("session:"+token, string(refreshed), expireOptions); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		if _, _, err := tx.Set("session_by_id:"+session.Id, token, expireOptions); err != nil {
			return fmt.Errorf("store session id: %w", err)
		}

		if previousSession.Ip != session.Ip || previousSession.UserAgent != session.UserAgent {
			logrus.
				WithField("session_id", session.Id).
				WithField("previous_ip", previousSession.Ip).
				WithField("new_ip", session.Ip).
				WithField("previous_user_agent", previousSession.UserAgent).
				WithField("new_user_agent", session.UserAgent).
				Infoln("Session client changed.")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return leaflink.Session{}, leaflink.ErrSessionNotFound
		}
		return leaflink.Session{}, fmt.Errorf("refresh session in buntdb: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) InvalidateByAuthToken(authToken string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Delete("session:" + authToken)
		if err != nil {
			return fmt.Errorf("delete session key: %w", err)
		}
		var session Session
		err = json.Unmarshal([]byte(serializedSession), &session)
		if err != nil {
			return fmt.Errorf("deserialize deleted session: %w", err)
		}
		_, err = tx.Delete("session_by_id:" + session.Id)
		if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("delete session id key: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return leaflink.ErrSessionNotFound
		}
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func generateSessionToken() (string, error) {
	const tokenBytes = 60
	rawToken := make([]byte, tokenBytes)
	// crypto/rand - getentropy(2)
	bytesRead, err := crand.Read(rawToken)
	if err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	if bytesRead != tokenBytes {
		return "", fmt.Errorf("bytes read %d / required %d", bytesRead, tokenBytes)
	}
	dirtyToken := base64.StdEncoding.EncodeToString(rawToken)

	// keys are built as "session:<token>", keep ':' out of tokens so one
	// token can never address another key
	token := strings.Replace(dirtyToken, ":", "_", -1)
	return token, nil
}
