package storage

import (
	"testing"
	"time"

	"expensebook/internal/auth"
	"expensebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for expense operations
type DBTestSuite struct {
	suite.Suite
	db    *DB
	owner *models.User
	other *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	hash, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err)

	suite.owner, err = db.CreateUser("owner", "owner@example.com", hash)
	require.NoError(suite.T(), err)
	suite.other, err = db.CreateUser("other", "other@example.com", hash)
	require.NoError(suite.T(), err)
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestCreateExpense() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.owner.ID, "Lunch", 1050, "food", day)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "Lunch", e.Name)
	assert.Equal(suite.T(), int64(1050), e.Amount)
	assert.Equal(suite.T(), "food", e.Category)
	assert.Equal(suite.T(), "2024-05-20", e.Day.Format("2006-01-02"))
	assert.Equal(suite.T(), suite.owner.ID, e.UserID)
}

func (suite *DBTestSuite) TestListExpensesByDayInsertionOrder() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	names := []string{"Bus", "Coffee", "Snack"}
	for _, name := range names {
		_, err := suite.db.CreateExpense(suite.owner.ID, name, 500, "food", day)
		require.NoError(suite.T(), err, "failed to create expense: %s", name)
	}

	result, err := suite.db.ListExpensesByDay(suite.owner.ID, day)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 3)

	for i, name := range names {
		assert.Equal(suite.T(), name, result[i].Name, "insertion order must be preserved")
	}
}

func (suite *DBTestSuite) TestListExpensesByDayFiltersDay() {
	monday := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	_, err := suite.db.CreateExpense(suite.owner.ID, "Monday lunch", 900, "food", monday)
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateExpense(suite.owner.ID, "Tuesday lunch", 1100, "food", tuesday)
	require.NoError(suite.T(), err)

	result, err := suite.db.ListExpensesByDay(suite.owner.ID, monday)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 1)
	assert.Equal(suite.T(), "Monday lunch", result[0].Name)
}

func (suite *DBTestSuite) TestListExpensesByDayScopedToOwner() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	_, err := suite.db.CreateExpense(suite.owner.ID, "Mine", 100, "food", day)
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateExpense(suite.other.ID, "Theirs", 200, "food", day)
	require.NoError(suite.T(), err)

	result, err := suite.db.ListExpensesByDay(suite.owner.ID, day)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 1)
	assert.Equal(suite.T(), "Mine", result[0].Name)
}

func (suite *DBTestSuite) TestGetExpenseForeignOwnerNotFound() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.other.ID, "Theirs", 200, "food", day)
	require.NoError(suite.T(), err)

	_, err = suite.db.GetExpense(suite.owner.ID, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound, "foreign expense must look absent")

	got, err := suite.db.GetExpense(suite.other.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Theirs", got.Name)
}

func (suite *DBTestSuite) TestUpdateExpense() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.owner.ID, "Lunch", 900, "food", day)
	require.NoError(suite.T(), err)

	e.Name = "Dinner"
	e.Amount = 2400
	e.Category = "entertaining"
	err = suite.db.UpdateExpense(suite.owner.ID, e)
	require.NoError(suite.T(), err)

	got, err := suite.db.GetExpense(suite.owner.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Dinner", got.Name)
	assert.Equal(suite.T(), int64(2400), got.Amount)
	assert.Equal(suite.T(), "entertaining", got.Category)
}

func (suite *DBTestSuite) TestUpdateExpenseForeignOwnerNotFound() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.other.ID, "Theirs", 200, "food", day)
	require.NoError(suite.T(), err)

	e.Name = "Hijacked"
	err = suite.db.UpdateExpense(suite.owner.ID, e)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	got, err := suite.db.GetExpense(suite.other.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Theirs", got.Name, "foreign update must not change the row")
}

func (suite *DBTestSuite) TestDeleteExpense() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.owner.ID, "Lunch", 900, "food", day)
	require.NoError(suite.T(), err)

	err = suite.db.DeleteExpense(suite.owner.ID, e.ID)
	require.NoError(suite.T(), err)

	_, err = suite.db.GetExpense(suite.owner.ID, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	// Deleting again reports NotFound
	err = suite.db.DeleteExpense(suite.owner.ID, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteExpenseForeignOwnerNotFound() {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	e, err := suite.db.CreateExpense(suite.other.ID, "Theirs", 200, "food", day)
	require.NoError(suite.T(), err)

	err = suite.db.DeleteExpense(suite.owner.ID, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetExpense(suite.other.ID, e.ID)
	assert.NoError(suite.T(), err, "foreign delete must not remove the row")
}

// UserTestSuite provides a test suite for user and reset-token operations
type UserTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest runs before each test
func (suite *UserTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *UserTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *UserTestSuite) TestCreateAndGetUser() {
	hash, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err)

	user, err := suite.db.CreateUser("alice", "alice@example.com", hash)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", user.Username)
	assert.Equal(suite.T(), "alice@example.com", user.Email)

	byName, err := suite.db.GetUserByUsername("alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byName.ID)

	byEmail, err := suite.db.GetUserByEmail("alice@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byEmail.ID)
}

func (suite *UserTestSuite) TestDuplicateUsernameRejected() {
	hash, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser("alice", "alice@example.com", hash)
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser("alice", "alice2@example.com", hash)
	assert.Error(suite.T(), err, "duplicate username must be rejected")

	_, err = suite.db.CreateUser("alice2", "alice@example.com", hash)
	assert.Error(suite.T(), err, "duplicate email must be rejected")
}

func (suite *UserTestSuite) TestResetTokenLifecycle() {
	hash, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err)
	user, err := suite.db.CreateUser("alice", "alice@example.com", hash)
	require.NoError(suite.T(), err)

	token := auth.NewResetToken()
	err = suite.db.SetResetToken(user.ID, token, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	found, err := suite.db.GetUserByResetToken(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, found.ID)

	// New password clears the token
	newHash, err := auth.HashPassword("newpass12")
	require.NoError(suite.T(), err)
	err = suite.db.UpdatePassword(user.ID, newHash)
	require.NoError(suite.T(), err)

	_, err = suite.db.GetUserByResetToken(token)
	assert.ErrorIs(suite.T(), err, ErrNotFound, "token must be single use")

	updated, err := suite.db.GetUserByID(user.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), auth.CheckPassword("newpass12", updated.PasswordHash))
}

func (suite *UserTestSuite) TestExpiredResetTokenRejected() {
	hash, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err)
	user, err := suite.db.CreateUser("alice", "alice@example.com", hash)
	require.NoError(suite.T(), err)

	token := auth.NewResetToken()
	err = suite.db.SetResetToken(user.ID, token, time.Now().Add(-time.Minute))
	require.NoError(suite.T(), err)

	_, err = suite.db.GetUserByResetToken(token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *UserTestSuite) TestEmptyResetTokenNeverMatches() {
	_, err := suite.db.GetUserByResetToken("")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	password, err := auth.HashPassword("testpass1")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser("testuser", "testuser@example.com", password)
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	sessionUser, err := suite.db.ValidateSession(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", sessionUser.Username)
}

func (suite *SessionTestSuite) TestValidateSessionWithInfo() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	info, err := suite.db.ValidateSessionWithInfo(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", info.User.Username)

	timeSinceActivity := time.Since(info.LastActivity)
	assert.Less(suite.T(), timeSinceActivity, 5*time.Second, "LastActivity should be recent")
}

func (suite *SessionTestSuite) TestRenewSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	originalExpiry := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(token, suite.user.ID, originalExpiry)
	require.NoError(suite.T(), err)

	time.Sleep(10 * time.Millisecond)

	originalInfo, err := suite.db.ValidateSessionWithInfo(token)
	require.NoError(suite.T(), err)

	newExpiry := time.Now().Add(60 * 24 * time.Hour)
	err = suite.db.RenewSession(token, newExpiry)
	require.NoError(suite.T(), err)

	updatedInfo, err := suite.db.ValidateSessionWithInfo(token)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), updatedInfo.LastActivity.After(originalInfo.LastActivity),
		"LastActivity should be updated after renewal")
	assert.True(suite.T(), updatedInfo.ExpiresAt.After(originalInfo.ExpiresAt),
		"ExpiresAt should be extended after renewal")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession(token)
	require.NoError(suite.T(), err, "session should exist before deletion")

	err = suite.db.DeleteSession(token)
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession(token)
	assert.Error(suite.T(), err, "expected error after deleting session")
}

func (suite *SessionTestSuite) TestExpiredSessionRejected() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	err = suite.db.CreateSession(token, suite.user.ID, time.Now().Add(-time.Hour))
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession(token)
	assert.Error(suite.T(), err, "expired session must not validate")

	err = suite.db.CleanExpiredSessions()
	require.NoError(suite.T(), err)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestUserSuite(t *testing.T) {
	suite.Run(t, new(UserTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
