package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yukikurage/timesheet-api/internal/cache"
	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/models"
)

// recordingCache is an in-memory cache.Store that remembers every
// invalidated tag. When err is set, invalidation fails.
type recordingCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	keys     map[string][]string
	versions map[string]int64
	tags     []string
	err      error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		values:   map[string][]byte{},
		keys:     map[string][]string{},
		versions: map[string]int64{},
	}
}

func (c *recordingCache) InvalidateTags(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tags...)
	if c.err != nil {
		return c.err
	}
	for _, tag := range tags {
		for _, key := range c.keys[tag] {
			delete(c.values, key)
		}
		delete(c.keys, tag)
		c.versions[tag]++
	}
	return nil
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, payload []byte, tags []string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = payload
	for _, tag := range tags {
		c.keys[tag] = append(c.keys[tag], key)
	}
	return nil
}

func (c *recordingCache) TagVersions(_ context.Context, tags []string) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(tags))
	for i, tag := range tags {
		out[i] = c.versions[tag]
	}
	return out, nil
}

// invalidated returns the tags recorded since the last call.
func (c *recordingCache) invalidated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := c.tags
	c.tags = nil
	return tags
}

func (suite *ServiceTestSuite) TestInvalidation_HRSubmitAndApprovals() {
	ts := suite.createHR(suite.activity("Inventaire", 6))
	sheetTags := []string{
		constants.CacheTagHRTimesheets,
		cache.UserHRTimesheetsTag(suite.employee.ID),
		cache.HRTimesheetTag(ts.ID),
	}
	suite.cache.invalidated()

	_, err := suite.hr.Submit(suite.ctx, subject(suite.employee), ts.ID)
	suite.Require().NoError(err)
	suite.Subset(suite.cache.invalidated(), sheetTags)

	_, err = suite.hr.ManagerApprove(suite.ctx, subject(suite.manager), ts.ID, ApprovalInput{Action: ApprovalApprove})
	suite.Require().NoError(err)
	suite.Subset(suite.cache.invalidated(), sheetTags)

	_, err = suite.hr.OdillonApprove(suite.ctx, subject(suite.hrUser), ts.ID, ApprovalInput{Action: ApprovalApprove})
	suite.Require().NoError(err)
	suite.Subset(suite.cache.invalidated(), sheetTags)

	// A refused transition changes nothing and invalidates nothing
	_, err = suite.hr.OdillonApprove(suite.ctx, subject(suite.hrUser), ts.ID, ApprovalInput{Action: ApprovalApprove})
	suite.Error(err)
	suite.Empty(suite.cache.invalidated())
}

func (suite *ServiceTestSuite) TestInvalidation_EntryValidateRefreshesPendingQueue() {
	entry := suite.createEntry(suite.employee)
	_, err := suite.timesheet.Submit(suite.ctx, subject(suite.employee), entry.ID)
	suite.Require().NoError(err)

	pending, err := suite.timesheet.Pending(suite.ctx, subject(suite.manager), 1, 20)
	suite.Require().NoError(err)
	suite.Require().Len(pending.Entries, 1)
	suite.cache.invalidated()

	_, err = suite.timesheet.Validate(suite.ctx, subject(suite.manager), ValidateEntryInput{
		EntryID: entry.ID,
		Status:  models.EntryStatusApproved,
	})
	suite.Require().NoError(err)
	suite.Subset(suite.cache.invalidated(), []string{
		constants.CacheTagTimesheets,
		cache.UserTimesheetsTag(suite.employee.ID),
	})

	pending, err = suite.timesheet.Pending(suite.ctx, subject(suite.manager), 1, 20)
	suite.Require().NoError(err)
	suite.Empty(pending.Entries)
	suite.Zero(pending.Total)
}

func (suite *ServiceTestSuite) TestInvalidation_FailureDoesNotFailTheAction() {
	suite.cache.err = errors.New("redis unavailable")

	ts := suite.createHR(suite.activity("Inventaire", 6))
	submitted, err := suite.hr.Submit(suite.ctx, subject(suite.employee), ts.ID)
	suite.Require().NoError(err)
	suite.Equal(models.HRStatusPending, submitted.Status)
	suite.Equal(models.HRStatusPending, suite.reloadHR(ts.ID).Status)

	entry := suite.createEntry(suite.employee)
	_, err = suite.timesheet.Submit(suite.ctx, subject(suite.employee), entry.ID)
	suite.Require().NoError(err)
	validated, err := suite.timesheet.Validate(suite.ctx, subject(suite.manager), ValidateEntryInput{
		EntryID: entry.ID,
		Status:  models.EntryStatusApproved,
	})
	suite.Require().NoError(err)
	suite.Equal(models.EntryStatusApproved, validated.Status)
	suite.NotEmpty(suite.cache.invalidated())
}
