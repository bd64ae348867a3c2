//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
	"github.com/eliteGoblin/focusd/screen_time/internal/infra"
	"github.com/eliteGoblin/focusd/screen_time/internal/policy"
	"github.com/eliteGoblin/focusd/screen_time/internal/usecase"
	"github.com/eliteGoblin/focusd/screen_time/test/fixtures"
)

// Process names no test machine runs, so termination reports "not running".
const (
	fakeGame    = "screentime-fixture-game.exe"
	fakeBrowser = "screentime-fixture-browser.exe"
)

var _ = Describe("Enforcement", func() {
	var (
		tmpDir  string
		tracker *fixtures.FakeActivityWatch
		hosts   *fixtures.HostsFile
		state   *infra.FileStateStore
		cfg     *config.Config
		noon    time.Time
	)

	newEnforcer := func() *usecase.EnforcerImpl {
		logger := zap.NewNop()
		reset, err := usecase.NewResetPolicy(cfg.Reset.Mode, state)
		Expect(err).NotTo(HaveOccurred())

		client := infra.NewActivityWatchClient(tracker.BaseURL(), cfg.Tracker.Timeout.Std())
		store := infra.NewFileHostsStore(hosts.Path, hosts.BackupPath)

		return usecase.NewEnforcer(usecase.EnforcerDeps{
			Aggregator:  usecase.NewAggregator(client, cfg.Tracker.WindowSourcePrefix, cfg.Tracker.WebSourcePrefix, logger),
			Processes:   infra.NewProcessController(),
			Hosts:       usecase.NewHostsUpdater(store, cfg.Hosts.BlockAddress, logger),
			PolicyStore: policy.NewRegistry(cfg),
			Reset:       reset,
			State:       state,
			Notifier:    infra.NopNotifier{},
		}, logger).WithClock(func() time.Time { return noon })
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "screentime-integration-*")
		Expect(err).NotTo(HaveOccurred())

		hosts, err = fixtures.NewHostsFile(tmpDir, fixtures.UnixHosts)
		Expect(err).NotTo(HaveOccurred())

		tracker = fixtures.NewFakeActivityWatch()
		state = infra.NewFileStateStore(tmpDir)

		cfg, err = config.Parse([]byte(`
[apps]
"` + fakeGame + `" = 30

[domains]
"youtube.com" = 60
"roblox.com" = 30

[close_apps]
"youtube.com" = "` + fakeBrowser + `"
`))
		Expect(err).NotTo(HaveOccurred())

		now := time.Now()
		noon = time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.Local)
	})

	AfterEach(func() {
		tracker.Close()
		os.RemoveAll(tmpDir)
	})

	Context("when a domain is over its limit", func() {
		BeforeEach(func() {
			morning := noon.Add(-3 * time.Hour)
			tracker.AddBucket("aw-watcher-window_testhost",
				fixtures.WindowEvent(morning, fakeGame, 10*time.Minute))
			tracker.AddBucket("aw-watcher-web-chrome_testhost",
				fixtures.WebEvent(morning, "https://www.youtube.com/watch?v=abc", 40*time.Minute),
				fixtures.WebEvent(morning.Add(time.Hour), "https://www.roblox.com/home", 10*time.Minute))
			tracker.AddBucket("aw-watcher-web-firefox_testhost",
				fixtures.WebEvent(morning.Add(2*time.Hour), "https://youtube.com/shorts", 22*time.Minute),
				// Yesterday's events are outside the window
				fixtures.WebEvent(morning.AddDate(0, 0, -1), "https://www.roblox.com/home", 120*time.Minute))
		})

		It("should block only that domain", func() {
			report, err := newEnforcer().Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Blocked).To(Equal([]string{"youtube.com"}))
			Expect(report.Terminated).To(BeEmpty())
			Expect(report.NotRunning).To(ConsistOf(fakeBrowser))
			Expect(hosts.Content()).To(Equal(fixtures.UnixHosts +
				"127.0.0.1 youtube.com\n" +
				"127.0.0.1 www.youtube.com\n"))
			Expect(hosts.Backup()).To(Equal(fixtures.UnixHosts))
		})

		It("should report usage for every rule", func() {
			usage, warnings, err := newEnforcer().Evaluate(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(BeEmpty())

			used := map[string]time.Duration{}
			for _, u := range usage {
				used[u.Rule.Target] = u.Used
			}
			Expect(used).To(Equal(map[string]time.Duration{
				fakeGame:      10 * time.Minute,
				"youtube.com": 62 * time.Minute,
				"roblox.com":  10 * time.Minute,
			}))
			Expect(hosts.BackupExists()).To(BeFalse())
		})

		It("should fetch each bucket once per run", func() {
			_, err := newEnforcer().Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(tracker.Requests("/buckets/aw-watcher-web-chrome_testhost/events")).To(Equal(1))
			Expect(tracker.Requests("/buckets/aw-watcher-web-firefox_testhost/events")).To(Equal(1))
			Expect(tracker.Requests("/buckets/aw-watcher-window_testhost/events")).To(Equal(1))
		})

		It("should record the block in the state file", func() {
			_, err := newEnforcer().Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			actions, err := state.RecentActions(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Kind).To(Equal(domain.ActionBlock))
			Expect(actions[0].Target).To(Equal("youtube.com"))
		})

		It("should leave the hosts file alone on the second run", func() {
			e := newEnforcer()
			_, err := e.Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			once := hosts.Content()

			report, err := e.Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Blocked).To(BeEmpty())
			Expect(report.AlreadyListed).To(ConsistOf("youtube.com"))
			Expect(hosts.Content()).To(Equal(once))
		})
	})

	Context("when the web watcher is missing", func() {
		BeforeEach(func() {
			tracker.AddBucket("aw-watcher-window_testhost",
				fixtures.WindowEvent(noon.Add(-time.Hour), fakeGame, 45*time.Minute))
		})

		It("should warn and still enforce app limits", func() {
			report, err := newEnforcer().Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Warnings).To(ContainElement(ContainSubstring("aw-watcher-web")))
			Expect(report.NotRunning).To(ConsistOf(fakeGame))
			Expect(report.Blocked).To(BeEmpty())
			Expect(hosts.Content()).To(Equal(fixtures.UnixHosts))
		})
	})

	Context("when the tracker fails", func() {
		It("should abort without touching the hosts file", func() {
			tracker.FailWith(http.StatusInternalServerError)

			report, err := newEnforcer().Enforce(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(report).To(BeNil())

			var trackerErr *infra.TrackerError
			Expect(errors.As(err, &trackerErr)).To(BeTrue())
			Expect(trackerErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(hosts.Content()).To(Equal(fixtures.UnixHosts))
			Expect(hosts.BackupExists()).To(BeFalse())
		})
	})

	Context("with the daily reset mode", func() {
		BeforeEach(func() {
			cfg.Reset.Mode = config.ResetDaily
			tracker.AddBucket("aw-watcher-web-chrome_testhost")
			tracker.AddBucket("aw-watcher-window_testhost")
		})

		It("should restore the hosts file on the first run of the day", func() {
			Expect(os.WriteFile(hosts.BackupPath, []byte(fixtures.UnixHosts), 0644)).To(Succeed())
			Expect(os.WriteFile(hosts.Path, []byte(fixtures.UnixHosts+"127.0.0.1 youtube.com\n"), 0644)).To(Succeed())
			Expect(state.SetLastReset(noon.AddDate(0, 0, -1))).To(Succeed())

			e := newEnforcer()
			report, err := e.Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Restored).To(BeTrue())
			Expect(hosts.Content()).To(Equal(fixtures.UnixHosts))

			last, err := state.LastReset()
			Expect(err).NotTo(HaveOccurred())
			Expect(last.Unix()).To(Equal(noon.Unix()))

			report, err = e.Enforce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Restored).To(BeFalse())
		})
	})
})
