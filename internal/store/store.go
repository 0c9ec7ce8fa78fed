package store

import (
	"log"

	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is the credential store: the single source of truth every concurrent
// request coordinates through. No entity is physically deleted by any flow
// except access-token revocation and request-token consumption.
type Store struct {
	db     *gorm.DB
	driver string
}

// Options control optional first-run behavior.
type Options struct {
	// SeedOnEmpty creates an admin user and a default client when the
	// user table is empty. Generated credentials are logged once.
	SeedOnEmpty bool
}

func New(driver, dsn string, opts Options) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// SQLite serializes writers anyway, and an in-memory database is
		// per-connection; one pooled connection keeps both honest.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.RequestToken{},
		&models.AccessToken{},
		&models.Device{},
		&models.Nonce{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db, driver: driver}

	if opts.SeedOnEmpty {
		if err := store.seedData(); err != nil {
			log.Printf("Warning: failed to seed data: %v", err)
		}
	}

	return store, nil
}

func (s *Store) seedData() error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount != 0 {
		return nil
	}

	password, err := util.CryptoRandomHex(12)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		ClientIDs:    models.StringArray{},
		DeviceIDs:    models.StringArray{},
	}
	if err := s.db.Create(user).Error; err != nil {
		return err
	}
	log.Printf("Created default user: admin@localhost / %s", password)

	clientKey := uuid.New().String()
	clientSecret, err := util.CryptoRandomHex(16)
	if err != nil {
		return err
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	client := &models.Client{
		ID:           uuid.New().String(),
		Name:         "MGServer Default",
		Description:  "Default client registration",
		ClientKey:    clientKey,
		SecretHash:   string(secretHash),
		CallbackURIs: models.StringArray{"oob://callback"},
		OwnerUserID:  user.ID,
	}
	if err := s.db.Create(client).Error; err != nil {
		return err
	}
	if err := s.AppendUserClientID(user.ID, client.ID); err != nil {
		return err
	}
	log.Printf("Created default client: key=%s", clientKey)
	log.Printf("Client secret (save this): %s", clientSecret)

	return nil
}

// lockForUpdate adds a row lock on drivers that support it. SQLite has no
// FOR UPDATE in its grammar; its single-writer model serializes the
// read-modify-write inside the transaction instead.
func (s *Store) lockForUpdate(tx *gorm.DB) *gorm.DB {
	if s.driver == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// User operations

func (s *Store) CreateUser(user *models.User) error {
	if user.Email != "" {
		var count int64
		if err := s.db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
	}
	return translate(s.db.Create(user).Error)
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND email <> ''", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SaveUser writes back the whole user row. Email uniqueness is re-checked so
// a profile update cannot claim another user's address.
func (s *Store) SaveUser(user *models.User) error {
	if user.Email != "" {
		var count int64
		err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", user.Email, user.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
	}
	return translate(s.db.Save(user).Error)
}

// AppendUserClientID atomically adds a client id to the user's client list.
// The append runs inside a transaction with the row locked on drivers that
// support it, so concurrent appends cannot lose updates.
func (s *Store) AppendUserClientID(userID, clientID string) error {
	return s.appendUserListID(userID, clientID, func(u *models.User) *models.StringArray {
		return &u.ClientIDs
	})
}

// AppendUserDeviceID atomically adds a device id to the user's device list.
func (s *Store) AppendUserDeviceID(userID, deviceID string) error {
	return s.appendUserListID(userID, deviceID, func(u *models.User) *models.StringArray {
		return &u.DeviceIDs
	})
}

func (s *Store) appendUserListID(
	userID, id string,
	list func(*models.User) *models.StringArray,
) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := s.lockForUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
			return translate(err)
		}
		target := list(&user)
		if target.Contains(id) {
			return nil
		}
		*target = append(*target, id)
		return translate(tx.Save(&user).Error)
	})
}

// Client operations

func (s *Store) CreateClient(client *models.Client) error {
	return translate(s.db.Create(client).Error)
}

func (s *Store) GetClientByID(id string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("id = ?", id).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *Store) GetClientByKey(clientKey string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("client_key = ?", clientKey).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *Store) ListClientsByOwner(ownerUserID string) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
