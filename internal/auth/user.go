package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// User represents a band member account with hashed password
type User struct {
	Username string `toml:"username"`
	Password string `toml:"password"` // Will be hashed after first load
	Role     string `toml:"role"`     // editor, viewer
	Created  string `toml:"created"`  // Creation timestamp
}

// UserConfig represents the structure of users.toml
type UserConfig struct {
	Users []User `toml:"users"`
}

// UserStore manages user authentication and storage
type UserStore struct {
	users    map[string]*User
	filePath string
}

// NewUserStore creates a new user store and loads users from the specified file
func NewUserStore(filePath string) (*UserStore, error) {
	store := &UserStore{
		users:    make(map[string]*User),
		filePath: filePath,
	}

	if err := store.loadUsers(); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	return store, nil
}

// loadUsers loads users from the TOML file and hashes passwords if needed
func (us *UserStore) loadUsers() error {
	if _, err := os.Stat(us.filePath); os.IsNotExist(err) {
		return us.createDefaultUser()
	}

	var config UserConfig
	if _, err := toml.DecodeFile(us.filePath, &config); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	needsSave := false
	for i := range config.Users {
		user := &config.Users[i]

		// Plaintext passwords get hashed on first load
		if !isHashedPassword(user.Password) {
			hashedPassword, err := hashPassword(user.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for user %s: %w", user.Username, err)
			}
			user.Password = hashedPassword
			needsSave = true
		}

		us.users[user.Username] = user
	}

	if needsSave {
		return us.saveUsers(&config)
	}

	return nil
}

// createDefaultUser creates a default editor account if no users file exists
func (us *UserStore) createDefaultUser() error {
	password, err := generateRandomPassword(12)
	if err != nil {
		return fmt.Errorf("failed to generate default password: %w", err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	defaultUser := User{
		Username: "bandleader",
		Password: hashedPassword,
		Role:     "editor",
		Created:  time.Now().Format("2006-01-02 15:04:05"),
	}

	config := UserConfig{
		Users: []User{defaultUser},
	}

	us.users["bandleader"] = &defaultUser

	if err := us.saveUsers(&config); err != nil {
		return err
	}

	fmt.Printf("\n"+
		"=====================================\n"+
		"DEFAULT EDITOR USER CREATED\n"+
		"=====================================\n"+
		"Username: bandleader\n"+
		"Password: %s\n"+
		"=====================================\n"+
		"Please change this password by editing users.toml\n\n", password)

	return nil
}

// saveUsers saves the user configuration back to the TOML file
func (us *UserStore) saveUsers(config *UserConfig) error {
	file, err := os.Create(us.filePath)
	if err != nil {
		return fmt.Errorf("failed to create users file: %w", err)
	}
	defer file.Close()

	header := `# Bandstand Users Configuration
# This file contains member accounts for authentication.
# Passwords will be automatically hashed when the server starts.
# To add a new user, add a new [[users]] section with username and password.
# Role "editor" can change setlists and charts; "viewer" can only follow along.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write users file header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode users to TOML: %w", err)
	}

	return nil
}

// Authenticate checks if the provided username and password are valid
func (us *UserStore) Authenticate(username, password string) bool {
	user, exists := us.users[username]
	if !exists {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// GetUser returns a user by username (without password hash)
func (us *UserStore) GetUser(username string) *User {
	user, exists := us.users[username]
	if !exists {
		return nil
	}

	return &User{
		Username: user.Username,
		Password: "",
		Role:     user.Role,
		Created:  user.Created,
	}
}

// IsEditor reports whether a username has the editor role.
func (us *UserStore) IsEditor(username string) bool {
	user, exists := us.users[username]
	return exists && user.Role == "editor"
}

// hashPassword hashes a plaintext password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// isHashedPassword checks if a password string is already hashed
func isHashedPassword(password string) bool {
	return len(password) >= 4 &&
		password[0] == '$' &&
		password[1] == '2' &&
		(password[2] == 'a' || password[2] == 'b' || password[2] == 'x' || password[2] == 'y') &&
		password[3] == '$'
}

// generateRandomPassword generates a cryptographically secure random password
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes)[:length], nil
}
