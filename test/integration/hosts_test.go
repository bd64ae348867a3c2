//go:build integration

package integration

import (
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
	"github.com/eliteGoblin/focusd/screen_time/internal/infra"
	"github.com/eliteGoblin/focusd/screen_time/internal/usecase"
	"github.com/eliteGoblin/focusd/screen_time/test/fixtures"
)

var _ = Describe("Hosts file blocking", func() {
	var (
		tmpDir  string
		hosts   *fixtures.HostsFile
		updater *usecase.HostsUpdater
	)

	setup := func(content string) {
		var err error
		hosts, err = fixtures.NewHostsFile(tmpDir, content)
		Expect(err).NotTo(HaveOccurred())
		store := infra.NewFileHostsStore(hosts.Path, hosts.BackupPath)
		updater = usecase.NewHostsUpdater(store, "127.0.0.1", zap.NewNop())
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "screentime-integration-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Block", func() {
		Context("with a Unix hosts file", func() {
			BeforeEach(func() { setup(fixtures.UnixHosts) })

			It("should append both entries for the domain", func() {
				added, _, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())
				Expect(added).To(Equal([]string{"youtube.com"}))

				Expect(hosts.Content()).To(Equal(fixtures.UnixHosts +
					"127.0.0.1 youtube.com\n" +
					"127.0.0.1 www.youtube.com\n"))
			})

			It("should back up the original before the first change", func() {
				Expect(hosts.BackupExists()).To(BeFalse())

				_, _, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())

				Expect(hosts.Backup()).To(Equal(fixtures.UnixHosts))
			})

			It("should be idempotent", func() {
				_, _, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())
				once := hosts.Content()

				added, already, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())
				Expect(added).To(BeEmpty())
				Expect(already).To(ConsistOf("youtube.com"))
				Expect(hosts.Content()).To(Equal(once))
			})

			It("should never overwrite an existing backup", func() {
				_, _, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())

				_, _, err = updater.Block([]string{"roblox.com"})
				Expect(err).NotTo(HaveOccurred())

				Expect(hosts.Backup()).To(Equal(fixtures.UnixHosts))
				Expect(hosts.Content()).To(ContainSubstring("127.0.0.1 www.roblox.com\n"))
			})
		})

		Context("with mixed line endings", func() {
			const mixed = "127.0.0.1 localhost\r\n::1 localhost\n# no trailing newline"

			BeforeEach(func() { setup(mixed) })

			It("should keep the existing bytes unchanged", func() {
				_, _, err := updater.Block([]string{"youtube.com"})
				Expect(err).NotTo(HaveOccurred())

				Expect(hosts.Content()).To(HavePrefix(mixed))
				Expect(hosts.Content()).To(HaveSuffix("127.0.0.1 www.youtube.com\r\n"))
			})
		})

		Context("with a Windows hosts file", func() {
			BeforeEach(func() { setup(fixtures.WindowsHosts) })

			It("should keep CRLF line endings", func() {
				_, _, err := updater.Block([]string{"roblox.com"})
				Expect(err).NotTo(HaveOccurred())

				Expect(hosts.Content()).To(HaveSuffix("127.0.0.1 roblox.com\r\n127.0.0.1 www.roblox.com\r\n"))
				Expect(strings.Count(hosts.Content(), "\n")).To(Equal(strings.Count(hosts.Content(), "\r\n")))
			})
		})
	})

	Describe("Restore", func() {
		It("should leave the file byte-identical to the original", func() {
			for _, content := range []string{fixtures.UnixHosts, fixtures.WindowsHosts, "no trailing newline"} {
				setup(content)
				_, _, err := updater.Block([]string{"youtube.com", "minecraft.com"})
				Expect(err).NotTo(HaveOccurred())
				Expect(hosts.Content()).NotTo(Equal(content))

				Expect(updater.Restore()).To(Succeed())
				Expect(hosts.Content()).To(Equal(content))

				Expect(os.Remove(hosts.BackupPath)).To(Succeed())
			}
		})

		It("should report a missing backup", func() {
			setup(fixtures.UnixHosts)

			err := updater.Restore()
			Expect(err).To(MatchError(domain.ErrNoBackup))
			Expect(hosts.Content()).To(Equal(fixtures.UnixHosts))
		})
	})
})
