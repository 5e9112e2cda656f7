package readfiles

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gorom/types"
)

type TrajectoriesFile struct {
	Title        string             `json:"Title"`
	Trajectories []types.Trajectory `json:"Trajectories"`
}

// WriteTrajectories keeps every n-th state of each trajectory, n = every
func WriteTrajectories(fileName, title string, trs []types.Trajectory, every int) (err error) {
	var (
		tf   = TrajectoriesFile{Title: title}
		data []byte
	)
	for _, tr := range trs {
		tf.Trajectories = append(tf.Trajectories, tr.Thin(every))
	}
	if data, err = yaml.Marshal(tf); err != nil {
		return
	}
	return os.WriteFile(fileName, data, 0644)
}

func ReadTrajectories(fileName string) (tf TrajectoriesFile, err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	if err = yaml.Unmarshal(data, &tf); err != nil {
		err = fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return
}
