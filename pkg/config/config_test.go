package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
)

var _ = Describe("Load", func() {
	var v *viper.Viper

	BeforeEach(func() {
		v = viper.New()
	})

	It("applies defaults", func() {
		cfg, err := Load(v)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Log.Level).To(Equal("info"))
		Expect(cfg.SSH.Port).To(Equal(sshutils.DefaultSSHPort))
		Expect(cfg.SSH.DialTimeout).To(Equal(sshutils.SSHDialTimeout))
		Expect(cfg.SSH.SFTPTimeout).To(Equal(sshutils.SFTPTimeout))
		Expect(cfg.SSH.RetryAttempts).To(Equal(sshutils.SSHRetryAttempts))
		Expect(cfg.InventoryPath).To(BeEmpty())
	})

	It("reads a yaml config file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "remotectl.yaml")
		Expect(os.WriteFile(path, []byte(`
log:
  level: debug
  file_path: /tmp/remotectl.log
ssh:
  port: 2222
  username: ops
  command_timeout: 90s
inventory: ~/hosts.yaml
`), 0o600)).To(Succeed())

		v.SetConfigFile(path)
		Expect(v.ReadInConfig()).To(Succeed())
		cfg, err := Load(v)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Log.Level).To(Equal("debug"))
		Expect(cfg.Log.FilePath).To(Equal("/tmp/remotectl.log"))
		Expect(cfg.SSH.Port).To(Equal(2222))
		Expect(cfg.SSH.Username).To(Equal("ops"))
		Expect(cfg.SSH.CommandTimeout).To(Equal(90 * time.Second))
		Expect(cfg.InventoryPath).To(Equal("~/hosts.yaml"))
		Expect(cfg.SSH.Timeouts().CommandTimeout).To(Equal(90 * time.Second))
	})

	It("honours environment overrides", func() {
		GinkgoT().Setenv("REMOTECTL_SSH_USERNAME", "from-env")
		GinkgoT().Setenv("REMOTECTL_SSH_SFTP_TIMEOUT", "45s")
		BindEnv(v)

		cfg, err := Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SSH.Username).To(Equal("from-env"))
		Expect(cfg.SSH.SFTPTimeout).To(Equal(45 * time.Second))
	})

	It("rejects out of range values", func() {
		v.Set("ssh.port", 70000)
		_, err := Load(v)
		Expect(err).To(MatchError(ContainSubstring("out of range")))

		v.Set("ssh.port", 22)
		v.Set("ssh.retry_delay", "-1s")
		_, err = Load(v)
		Expect(err).To(MatchError(ContainSubstring("ssh.retry_delay")))
	})
})
