package main

import (
	"gopkg.in/check.v1"
)

type arvadosSuite struct{}

var _ = check.Suite(&arvadosSuite{})

func (s *arvadosSuite) TestTranslatePaths(c *check.C) {
	runner := arvadosContainerRunner{}
	asm := "d41d8cd98f00b204e9800998ecf8427e+0/assembly.fa"
	settings := "/home/user/keep/by_id/zzzzz-4zz18-0123456789abcde/settings.yaml"
	unset := ""
	c.Assert(runner.TranslatePaths(&asm, &settings, &unset), check.IsNil)
	c.Check(asm, check.Equals, "/mnt/d41d8cd98f00b204e9800998ecf8427e+0/assembly.fa")
	c.Check(settings, check.Equals, "/mnt/zzzzz-4zz18-0123456789abcde/settings.yaml")
	c.Check(unset, check.Equals, "")
	c.Check(runner.Mounts, check.DeepEquals, map[string]string{
		"d41d8cd98f00b204e9800998ecf8427e+0": "/mnt/d41d8cd98f00b204e9800998ecf8427e+0",
		"zzzzz-4zz18-0123456789abcde":        "/mnt/zzzzz-4zz18-0123456789abcde",
	})

	// a second file in an already-mounted collection reuses the mount
	other := "d41d8cd98f00b204e9800998ecf8427e+0/other.fa.gz"
	c.Assert(runner.TranslatePaths(&other), check.IsNil)
	c.Check(other, check.Equals, "/mnt/d41d8cd98f00b204e9800998ecf8427e+0/other.fa.gz")
	c.Check(runner.Mounts, check.HasLen, 2)
}

func (s *arvadosSuite) TestTranslatePathsNoCollection(c *check.C) {
	runner := arvadosContainerRunner{}
	local := "/tmp/assembly.fa"
	err := runner.TranslatePaths(&local)
	c.Check(err, check.ErrorMatches, `cannot find uuid in path: "/tmp/assembly.fa"`)
	c.Check(local, check.Equals, "/tmp/assembly.fa")
}

func (s *arvadosSuite) TestRunRequiresProject(c *check.C) {
	runner := arvadosContainerRunner{}
	_, err := runner.Run()
	c.Check(err, check.ErrorMatches, `.*ProjectUUID not provided`)
}

func (s *arvadosSuite) TestContainerMounts(c *check.C) {
	runner := arvadosContainerRunner{}
	asm := "d41d8cd98f00b204e9800998ecf8427e+0/assembly.fa"
	settings := "zzzzz-4zz18-0123456789abcde/settings.yaml"
	c.Assert(runner.TranslatePaths(&asm, &settings), check.IsNil)
	mounts := runner.containerMounts("zzzzz-4zz18-aaaaaaaaaaaaaaa")
	c.Check(mounts, check.HasLen, 4)
	c.Check(mounts[cmdMount], check.DeepEquals, map[string]interface{}{"kind": "collection", "uuid": "zzzzz-4zz18-aaaaaaaaaaaaaaa"})
	c.Check(mounts[outputMount]["writable"], check.Equals, true)
	c.Check(mounts["/mnt/d41d8cd98f00b204e9800998ecf8427e+0"], check.DeepEquals, map[string]interface{}{"kind": "collection", "portable_data_hash": "d41d8cd98f00b204e9800998ecf8427e+0"})
	c.Check(mounts["/mnt/zzzzz-4zz18-0123456789abcde"], check.DeepEquals, map[string]interface{}{"kind": "collection", "uuid": "zzzzz-4zz18-0123456789abcde"})
}
