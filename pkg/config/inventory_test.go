package config

import (
	"os"
	"path/filepath"

	"github.com/bacalhau-project/remotectl/internal/testutil"
	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/mitchellh/go-homedir"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const sampleInventory = `
hosts:
  - name: bastion
    host: 203.0.113.10
    username: admin
    private_key_paths:
      - ~/.ssh/id_ed25519
  - name: db
    host: 10.0.0.2
    username: cirros
    password: ${DB_PASSWORD}
    jump: bastion
    sudo: true
  - host: 10.0.0.3
`

var _ = Describe("Inventory", func() {
	It("parses hosts and resolves lookups", func() {
		inv, err := ParseInventory([]byte(sampleInventory))
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Hosts).To(HaveLen(3))

		db, ok := inv.Lookup("db")
		Expect(ok).To(BeTrue())
		Expect(db.Host).To(Equal("10.0.0.2"))
		Expect(db.Jump).To(Equal("bastion"))
		Expect(db.Sudo).To(BeTrue())

		_, ok = inv.Lookup("10.0.0.3")
		Expect(ok).To(BeTrue())
		_, ok = inv.Lookup("missing")
		Expect(ok).To(BeFalse())
	})

	It("fills defaults and expands password variables", func() {
		GinkgoT().Setenv("DB_PASSWORD", "s3cret")
		inv, err := ParseInventory([]byte(sampleInventory))
		Expect(err).NotTo(HaveOccurred())

		db, _ := inv.Lookup("db")
		db = db.WithDefaults(SSHConfig{Port: 22, Username: "ops"})
		Expect(db.Port).To(Equal(22))
		Expect(db.Username).To(Equal("cirros"))
		Expect(db.Password).To(Equal("s3cret"))

		plain, _ := inv.Lookup("10.0.0.3")
		plain = plain.WithDefaults(SSHConfig{Port: 2222, Username: "ops"})
		Expect(plain.Port).To(Equal(2222))
		Expect(plain.Username).To(Equal("ops"))
	})

	DescribeTable("rejects invalid inventories",
		func(doc, message string) {
			_, err := ParseInventory([]byte(doc))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("missing host", "hosts:\n  - name: a\n", "has no host"),
		Entry("duplicate", "hosts:\n  - host: a\n  - host: a\n", "duplicate"),
		Entry("unknown jump", "hosts:\n  - host: a\n    jump: b\n", "unknown host"),
		Entry("self jump", "hosts:\n  - name: a\n    host: x\n    jump: a\n", "itself"),
		Entry("chained jump",
			"hosts:\n  - name: a\n    host: x\n  - name: b\n    host: y\n    jump: a\n  - name: c\n    host: z\n    jump: b\n",
			"directly reachable"),
		Entry("bad yaml", "hosts: [", "failed to parse"),
	)

	It("loads signers from key paths", func() {
		dir := GinkgoT().TempDir()
		keyPath, kp := testutil.WriteTestKeyPair(GinkgoTB(), dir, "id_ed25519")

		h := HostConfig{Host: "a", PrivateKeyPaths: []string{keyPath}}
		signers, err := h.Signers()
		Expect(err).NotTo(HaveOccurred())
		Expect(signers).To(HaveLen(1))
		Expect(sshutils.PublicKeyString(signers[0])).To(Equal(kp.AuthorizedKey))
	})

	It("expands ~ in key paths", func() {
		home := GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", home)
		homedir.DisableCache = true
		DeferCleanup(func() { homedir.DisableCache = false })
		h := HostConfig{PrivateKeyPaths: []string{"~/.ssh/id_rsa"}}

		paths, err := h.KeyPaths()
		Expect(err).NotTo(HaveOccurred())
		Expect(paths).To(ConsistOf(filepath.Join(home, ".ssh", "id_rsa")))
	})

	It("loads an inventory file from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "hosts.yaml")
		Expect(os.WriteFile(path, []byte(sampleInventory), 0o600)).To(Succeed())

		inv, err := LoadInventory(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Hosts).To(HaveLen(3))

		_, err = LoadInventory(filepath.Join(filepath.Dir(path), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
