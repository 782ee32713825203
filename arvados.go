package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"git.arvados.org/arvados.git/sdk/go/arvados"
	"git.arvados.org/arvados.git/sdk/go/arvadosclient"
	"git.arvados.org/arvados.git/sdk/go/keepclient"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// arvadosContainerRunner submits a crisprs invocation as an Arvados
// container request.
type arvadosContainerRunner struct {
	Client      *arvados.Client
	Name        string
	ProjectUUID string
	VCPUs       int
	RAM         int64
	Priority    int
	Args        []string
	Mounts      map[string]string // collection UUID or PDH => mount point
}

const (
	cmdMount    = "/mnt/cmd"
	outputMount = "/mnt/output"
)

var (
	collectionInPathRe = regexp.MustCompile(`^(.*/)?([0-9a-f]{32}\+[0-9]+|[0-9a-z]{5}-[0-9a-z]{5}-[0-9a-z]{15})(/.*)?$`)
	pdhRe              = regexp.MustCompile(`^[0-9a-f]{32}\+[0-9]+$`)
)

// collectionMount describes a read-only mount of the collection with
// the given UUID or portable data hash.
func collectionMount(id string) map[string]interface{} {
	if pdhRe.MatchString(id) {
		return map[string]interface{}{"kind": "collection", "portable_data_hash": id}
	}
	return map[string]interface{}{"kind": "collection", "uuid": id}
}

// containerMounts returns the mounts for a container running the
// executable stored in cmdColl: the executable, a scratch output
// directory, and every input collection.
func (runner *arvadosContainerRunner) containerMounts(cmdColl string) map[string]map[string]interface{} {
	mounts := map[string]map[string]interface{}{
		cmdMount: collectionMount(cmdColl),
		outputMount: {
			"kind":     "tmp",
			"writable": true,
			"capacity": 100000000000,
		},
	}
	for id, mnt := range runner.Mounts {
		mounts[mnt] = collectionMount(id)
	}
	return mounts
}

// Run submits the container request and returns its UUID.
func (runner *arvadosContainerRunner) Run() (string, error) {
	if runner.ProjectUUID == "" {
		return "", errors.New("cannot run arvados container: ProjectUUID not provided")
	}
	exe, err := os.ReadFile("/proc/self/exe")
	if err != nil {
		return "", err
	}
	cmdColl, err := runner.commandCollection(exe)
	if err != nil {
		return "", err
	}
	var cr arvados.ContainerRequest
	err = runner.Client.RequestAndDecode(&cr, "POST", "arvados/v1/container_requests", nil, map[string]interface{}{
		"container_request": map[string]interface{}{
			"owner_uuid":      runner.ProjectUUID,
			"name":            runner.Name,
			"container_image": runtimeImage,
			"command":         append([]string{cmdMount + "/crisprs"}, runner.Args...),
			"mounts":          runner.containerMounts(cmdColl),
			"use_existing":    true,
			"output_path":     outputMount,
			"runtime_constraints": arvados.RuntimeConstraints{
				VCPUs:        runner.VCPUs,
				RAM:          runner.RAM,
				KeepCacheRAM: (1 << 26) * 2 * int64(runner.VCPUs),
			},
			"priority": runner.Priority,
			"state":    arvados.ContainerRequestStateCommitted,
		},
	})
	if err != nil {
		return "", fmt.Errorf("submitting container request: %w", err)
	}
	log.WithField("uuid", cr.UUID).Info("container request submitted")
	return cr.UUID, nil
}

// TranslatePaths rewrites each path that refers to a file in a
// collection so it points at the collection's mount point inside the
// container. Empty paths are left alone.
func (runner *arvadosContainerRunner) TranslatePaths(paths ...*string) error {
	if runner.Mounts == nil {
		runner.Mounts = make(map[string]string)
	}
	for _, path := range paths {
		if *path == "" {
			continue
		}
		m := collectionInPathRe.FindStringSubmatch(*path)
		if m == nil {
			return fmt.Errorf("cannot find uuid in path: %q", *path)
		}
		id, rest := m[2], m[3]
		if _, ok := runner.Mounts[id]; !ok {
			runner.Mounts[id] = "/mnt/" + id
		}
		*path = runner.Mounts[id] + rest
	}
	return nil
}

// commandCollection returns the UUID of a collection holding exe,
// named after its blake2b hash. An existing collection with that name
// in the project is reused.
func (runner *arvadosContainerRunner) commandCollection(exe []byte) (string, error) {
	cname := fmt.Sprintf("crisprs-%x", blake2b.Sum256(exe))
	logger := log.WithField("collection", cname)
	var existing arvados.CollectionList
	err := runner.Client.RequestAndDecode(&existing, "GET", "arvados/v1/collections", nil, arvados.ListOptions{
		Limit: 1,
		Count: "none",
		Filters: []arvados.Filter{
			{Attr: "name", Operator: "=", Operand: cname},
			{Attr: "owner_uuid", Operator: "=", Operand: runner.ProjectUUID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", cname, err)
	}
	if len(existing.Items) > 0 {
		logger.WithField("uuid", existing.Items[0].UUID).Info("reusing existing executable collection")
		return existing.Items[0].UUID, nil
	}
	logger.Info("uploading executable")
	mtxt, err := runner.storeFile("crisprs", exe)
	if err != nil {
		return "", err
	}
	var coll arvados.Collection
	err = runner.Client.RequestAndDecode(&coll, "POST", "arvados/v1/collections", nil, map[string]interface{}{
		"collection": map[string]interface{}{
			"owner_uuid":    runner.ProjectUUID,
			"manifest_text": mtxt,
			"name":          cname,
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", cname, err)
	}
	logger.WithField("uuid", coll.UUID).Info("executable collection created")
	return coll.UUID, nil
}

// storeFile writes data to Keep as an executable file named fnm and
// returns the manifest text of a collection containing only that file.
func (runner *arvadosContainerRunner) storeFile(fnm string, data []byte) (string, error) {
	ac, err := arvadosclient.New(runner.Client)
	if err != nil {
		return "", err
	}
	var coll arvados.Collection
	fs, err := coll.FileSystem(runner.Client, keepclient.New(ac))
	if err != nil {
		return "", err
	}
	f, err := fs.OpenFile(fnm, os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		return "", err
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return fs.MarshalManifest(".")
}
