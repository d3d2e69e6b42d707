// ABOUTME: Identity service backing the remote data layer: register, login, logout, password reset
// ABOUTME: Accounts live as documents in the shared _accounts namespace; sessions are HS256 JWTs
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/clientbook/docstore"
)

// Document location of accounts.
const (
	AccountsNamespace  = "_accounts"
	AccountsCollection = "users"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrNameRequired       = errors.New("please enter your name")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrNoAccount          = errors.New("no account found for that email")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is the authenticated identity.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

type account struct {
	ID           string             `json:"id"`
	Email        string             `json:"email"`
	DisplayName  string             `json:"displayName"`
	PasswordHash string             `json:"passwordHash"`
	CreatedAt    docstore.Timestamp `json:"createdAt"`
}

func (a account) user() User {
	return User{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName, CreatedAt: a.CreatedAt.Time}
}

// stamp changes whenever the password does.
func (a account) stamp() string {
	h := a.PasswordHash
	if len(h) > 12 {
		h = h[len(h)-12:]
	}
	return h
}

// Notifier delivers password reset tokens.
type Notifier interface {
	SendReset(ctx context.Context, email, token string) error
}

// LogNotifier writes reset tokens to the log, for single-user installs without mail.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) SendReset(ctx context.Context, email, token string) error {
	n.Logger.Info("password reset requested", "email", email, "token", token)
	return nil
}

// WriterNotifier prints reset tokens to W, for the command line.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) SendReset(_ context.Context, email, token string) error {
	_, err := fmt.Fprintf(n.W, "Reset token for %s (valid %s):\n%s\n", email, ResetTTL, token)
	return err
}

// Service holds the current session. It implements remote.Identity.
type Service struct {
	docs     docstore.Service
	tokens   *JWT
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *User
	token   string

	listenMu  sync.Mutex
	listeners map[int]func(User, bool)
	nextID    int
}

func NewService(docs docstore.Service, secret string, notifier Notifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("auth")
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Service{
		docs:      docs,
		tokens:    NewJWT(secret),
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func(User, bool)),
	}
}

// SetNotifier replaces where reset tokens are sent.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// CurrentUser returns the logged-in user, if any.
func (s *Service) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

func (s *Service) UserID() (string, bool) {
	u, ok := s.CurrentUser()
	return u.ID, ok
}

// Token returns the session token of the current user, "" when logged out.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// OnChange registers fn to run after every login and logout. signedIn is
// false on logout.
func (s *Service) OnChange(fn func(u User, signedIn bool)) (cancel func()) {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenMu.Unlock()
	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

func (s *Service) emit(u User, signedIn bool) {
	s.listenMu.Lock()
	fns := make([]func(User, bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenMu.Unlock()
	for _, fn := range fns {
		fn(u, signedIn)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func accountRef(email string) docstore.Ref {
	return docstore.Ref{Namespace: AccountsNamespace, Collection: AccountsCollection, ID: email}
}

func (s *Service) lookup(ctx context.Context, email string) (account, error) {
	raw, err := s.docs.Get(ctx, accountRef(email))
	if err != nil {
		return account{}, err
	}
	var a account
	if err := json.Unmarshal(raw, &a); err != nil {
		return account{}, fmt.Errorf("decode account: %w", err)
	}
	return a, nil
}

func (s *Service) lookupID(ctx context.Context, id string) (account, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Namespace:  AccountsNamespace,
		Collection: AccountsCollection,
		Where:      []docstore.Filter{docstore.Where("id", docstore.Eq, id)},
		Limit:      1,
	})
	if err != nil {
		return account{}, err
	}
	accts, err := docstore.Decode[account](docs)
	if err != nil {
		return account{}, err
	}
	if len(accts) == 0 {
		return account{}, docstore.ErrNotFound
	}
	return accts[0], nil
}

func (s *Service) signIn(a account) (User, error) {
	token, err := s.tokens.Sign(a.ID, PurposeSession, "", SessionTTL)
	if err != nil {
		return User{}, fmt.Errorf("sign session: %w", err)
	}
	u := a.user()
	s.mu.Lock()
	s.current = &u
	s.token = token
	s.mu.Unlock()
	s.logger.Info("signed in", "user", u.ID)
	s.emit(u, true)
	return u, nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, ErrNameRequired
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	a := account{
		ID:           docstore.NewID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    docstore.FromMillis(s.now().UnixMilli()),
	}
	if err := s.docs.Create(ctx, accountRef(email), a); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create account: %w", err)
	}
	return s.signIn(a)
}

// Login checks the password and signs the account in.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	a, err := s.lookup(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	if !ComparePassword(a.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return s.signIn(a)
}

// Restore resumes a session from a token saved by a previous run.
func (s *Service) Restore(ctx context.Context, token string) (User, error) {
	uid, _, err := s.tokens.Verify(token, PurposeSession)
	if err != nil {
		return User{}, err
	}
	a, err := s.lookupID(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, fmt.Errorf("restore session: %w", err)
	}
	u := a.user()
	s.mu.Lock()
	s.current = &u
	s.token = token
	s.mu.Unlock()
	s.emit(u, true)
	return u, nil
}

// Logout clears the session. Logging out while signed out does nothing.
func (s *Service) Logout() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.token = ""
	s.mu.Unlock()
	if prev == nil {
		return
	}
	s.logger.Info("signed out", "user", prev.ID)
	s.emit(*prev, false)
}

// ResetPassword issues a one-hour reset token and hands it to the notifier.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	a, err := s.lookup(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNoAccount
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	token, err := s.tokens.Sign(a.ID, PurposeReset, a.stamp(), ResetTTL)
	if err != nil {
		return fmt.Errorf("sign reset: %w", err)
	}
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	return n.SendReset(ctx, email, token)
}

// ConfirmReset sets a new password using a reset token. The token stops
// working once the password changes.
func (s *Service) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	uid, stamp, err := s.tokens.Verify(token, PurposeReset)
	if err != nil {
		return err
	}
	a, err := s.lookupID(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	if a.stamp() != stamp {
		return ErrInvalidToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.docs.Update(ctx, accountRef(a.Email), map[string]any{"passwordHash": hash}); err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	s.logger.Info("password changed", "user", a.ID)
	return nil
}
