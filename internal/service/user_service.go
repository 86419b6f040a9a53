package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"startup-apply/internal/domain"
	"startup-apply/internal/email"
	"startup-apply/internal/policy"
	"startup-apply/internal/query"
	"startup-apply/internal/repository"
)

const (
	defaultBcryptCost     = 12
	defaultOTPMaxAttempts = 5
)

// UserSearchFields son los campos que recorre el parametro search en el listado de usuarios.
var UserSearchFields = []string{"name", "email"}

var fieldValidator = validator.New(validator.WithRequiredStructEnabled())

// UserService coordina reglas de negocio para usuarios y credenciales.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      *JWTService
	emailSender email.Sender
	otps        OTPStore
	otpLimiter  OTPRateLimiter
	otpTTL      time.Duration
	otpAttempts int
	bcryptCost  int
	now         func() time.Time
}

// UserServiceConfig agrupa las dependencias opcionales del servicio.
type UserServiceConfig struct {
	EmailSender email.Sender
	OTPStore    OTPStore
	OTPLimiter  OTPRateLimiter
	OTPTTL      time.Duration
	BcryptCost  int

	// OTPMaxAttempts es cuantos codigos se pueden probar antes de invalidar el vigente.
	OTPMaxAttempts int
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, tokens *JWTService, cfg UserServiceConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = defaultOTPTTL
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = defaultOTPMaxAttempts
	}
	if cfg.OTPStore == nil {
		cfg.OTPStore = NewMemoryOTPStore(cfg.OTPTTL)
	}
	if cfg.OTPLimiter == nil {
		cfg.OTPLimiter = NewOTPRateLimiter(10*time.Minute, 3)
	}
	if cfg.EmailSender == nil {
		cfg.EmailSender = email.NewDisabledSender("email sender not configured")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = defaultBcryptCost
	}
	return &UserService{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		emailSender: cfg.EmailSender,
		otps:        cfg.OTPStore,
		otpLimiter:  cfg.OTPLimiter,
		otpTTL:      cfg.OTPTTL,
		otpAttempts: cfg.OTPMaxAttempts,
		bcryptCost:  cfg.BcryptCost,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register crea una cuenta no admin. El email se guarda en minusculas.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr, err := s.checkEmail(input.Email)
	if err != nil {
		return domain.User{}, err
	}
	if name == "" || input.Password == "" {
		return domain.User{}, fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if input.Password != input.ConfirmPassword {
		return domain.User{}, fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return s.create(ctx, domain.User{Name: name, Email: emailAddr}, input.Password)
}

// LoginResult es la sesion emitida tras validar credenciales.
type LoginResult struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Login responde ErrNotFound si el email no existe y ErrInvalidCredentials si la
// password no coincide.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return LoginResult{}, translate(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token}, nil
}

func (s *UserService) GetUser(ctx context.Context, actor policy.Actor, id string) (domain.User, error) {
	if err := authorize(actor, policy.OpReadUser, policy.Target{OwnerID: id}); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, q query.Query) (query.Paged[domain.User], error) {
	if err := authorize(actor, policy.OpListUsers, policy.Target{}); err != nil {
		return query.Paged[domain.User]{}, err
	}
	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return query.Paged[domain.User]{}, err
	}
	return query.NewPaged(q, total, users), nil
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
	ImageURL string
}

// CreateUser es el alta administrativa; permite crear otros admins.
func (s *UserService) CreateUser(ctx context.Context, actor policy.Actor, input CreateUserInput) (domain.User, error) {
	if err := authorize(actor, policy.OpCreateUser, policy.Target{}); err != nil {
		return domain.User{}, err
	}
	emailAddr, err := s.checkEmail(input.Email)
	if err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Password == "" {
		return domain.User{}, fmt.Errorf("%w: name and password are required", ErrValidation)
	}
	return s.create(ctx, domain.User{
		Name:     name,
		Email:    emailAddr,
		IsAdmin:  input.IsAdmin,
		ImageURL: strings.TrimSpace(input.ImageURL),
	}, input.Password)
}

// UserPatch son los campos que un admin o el propio usuario pueden cambiar.
// Los punteros nil no se tocan.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	IsAdmin  *bool
	ImageURL *string
}

func (s *UserService) UpdateUser(ctx context.Context, actor policy.Actor, id string, patch UserPatch) (domain.User, error) {
	if err := authorize(actor, policy.OpUpdateUser, policy.Target{OwnerID: id}); err != nil {
		return domain.User{}, err
	}
	if patch.IsAdmin != nil && !actor.IsAdmin {
		return domain.User{}, ErrForbidden
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, translate(err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.User{}, fmt.Errorf("%w: name is required", ErrValidation)
		}
		user.Name = name
	}
	if patch.Email != nil {
		emailAddr, err := s.checkEmail(*patch.Email)
		if err != nil {
			return domain.User{}, err
		}
		user.Email = emailAddr
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := s.hash(*patch.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}
	if patch.IsAdmin != nil {
		user.IsAdmin = *patch.IsAdmin
	}
	if patch.ImageURL != nil {
		user.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, translate(err)
	}
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, id string) (domain.User, error) {
	if err := authorize(actor, policy.OpDeleteUser, policy.Target{OwnerID: id}); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

// ProfilePatch cubre los datos que el usuario edita sobre si mismo. El email no cambia aca.
type ProfilePatch struct {
	Name     *string
	ImageURL *string
}

func (s *UserService) UpdateProfile(ctx context.Context, actor policy.Actor, patch ProfilePatch) (domain.User, error) {
	if actor.Anonymous() {
		return domain.User{}, ErrNotFound
	}
	return s.UpdateUser(ctx, actor, actor.UserID, UserPatch{Name: patch.Name, ImageURL: patch.ImageURL})
}

func (s *UserService) UpdateProfilePic(ctx context.Context, actor policy.Actor, imageURL string) (domain.User, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return domain.User{}, fmt.Errorf("%w: imageUrl is required", ErrValidation)
	}
	return s.UpdateProfile(ctx, actor, ProfilePatch{ImageURL: &imageURL})
}

// UpdatePassword exige la password actual y re-hashea la nueva.
func (s *UserService) UpdatePassword(ctx context.Context, actor policy.Actor, current, next, confirm string) error {
	if actor.Anonymous() {
		return ErrNotFound
	}
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", ErrValidation)
	}
	if next != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return translate(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	_, err = s.users.Update(ctx, user)
	return translate(err)
}

// EnsureAdmin crea el admin si el email no existe o lo promueve si ya existe.
// Devuelve true cuando tuvo que crearlo.
func (s *UserService) EnsureAdmin(ctx context.Context, name, emailAddr, password string) (domain.User, bool, error) {
	emailAddr, err := s.checkEmail(emailAddr)
	if err != nil {
		return domain.User{}, false, err
	}
	existing, err := s.users.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return existing, false, nil
		}
		existing.IsAdmin = true
		updated, err := s.users.Update(ctx, existing)
		return updated, false, translate(err)
	case !errors.Is(err, repository.ErrNotFound):
		return domain.User{}, false, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	if password == "" {
		return domain.User{}, false, fmt.Errorf("%w: password is required", ErrValidation)
	}
	user, err := s.create(ctx, domain.User{Name: strings.TrimSpace(name), Email: emailAddr, IsAdmin: true}, password)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// ForgotPassword genera un codigo de 6 digitos, lo guarda con TTL y lo envia por email.
func (s *UserService) ForgotPassword(ctx context.Context, emailAddr string) (time.Time, error) {
	emailAddr, err := s.checkEmail(emailAddr)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := s.users.GetByEmail(ctx, emailAddr); err != nil {
		return time.Time{}, translate(err)
	}
	if !s.otpLimiter.Allow(ctx, emailAddr) {
		return time.Time{}, ErrRateLimited
	}

	code, hash, err := generateOTP()
	if err != nil {
		return time.Time{}, err
	}
	createdAt := s.now()
	if err := s.otps.Save(ctx, OTPRecord{Email: emailAddr, CodeHash: hash, CreatedAt: createdAt}); err != nil {
		return time.Time{}, err
	}
	expiresAt := createdAt.Add(s.otpTTL)
	if err := s.emailSender.SendPasswordResetOTP(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send password reset otp failed", zap.Error(err), zap.String("email", emailAddr))
		return time.Time{}, ErrEmailSendFailure
	}
	return expiresAt, nil
}

type ResetPasswordInput struct {
	Email           string
	Code            string
	Password        string
	ConfirmPassword string
}

// ResetPassword valida el codigo, cambia la password y consume el codigo.
func (s *UserService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	emailAddr, err := s.checkEmail(input.Email)
	if err != nil {
		return err
	}
	code := strings.TrimSpace(input.Code)
	if !isValidOTPCode(code) {
		return ErrOTPInvalid
	}
	if input.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	if input.Password != input.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	rec, err := s.otps.Get(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return ErrOTPExpired
		}
		return err
	}
	if !s.now().Before(rec.CreatedAt.Add(s.otpTTL)) {
		_ = s.otps.Delete(ctx, emailAddr)
		return ErrOTPExpired
	}
	// El intento se cuenta antes de comparar, asi requests concurrentes no superan el tope.
	attempts, err := s.otps.Attempt(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return ErrOTPExpired
		}
		return err
	}
	if attempts > s.otpAttempts {
		s.logger.Warn("otp attempts exhausted", zap.String("email", emailAddr), zap.Int("attempts", attempts))
		_ = s.otps.Delete(ctx, emailAddr)
		return ErrOTPExpired
	}
	if !verifyOTP(code, rec.CodeHash) {
		if attempts == s.otpAttempts {
			_ = s.otps.Delete(ctx, emailAddr)
		}
		return ErrOTPInvalid
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return translate(err)
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := s.users.Update(ctx, user); err != nil {
		return translate(err)
	}
	if err := s.otps.Delete(ctx, emailAddr); err != nil {
		s.logger.Warn("delete consumed otp failed", zap.Error(err), zap.String("email", emailAddr))
	}
	return nil
}

func (s *UserService) create(ctx context.Context, user domain.User, password string) (domain.User, error) {
	hash, err := s.hash(password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.PasswordHash = hash
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) hash(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func (s *UserService) checkEmail(raw string) (string, error) {
	emailAddr := normalizeEmail(raw)
	if err := fieldValidator.Var(emailAddr, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return emailAddr, nil
}

func generateOTP() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return code, saltStr + ":" + hash, nil
}

func verifyOTP(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	hashBytes := sha256.Sum256([]byte(parts[0] + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(parts[1])) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
