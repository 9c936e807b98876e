package process_blob

import (
	"fmt"
	"strings"

	"verpatch/process"
)

// ImageHelper is a process.ProcessHelper over a fixed set of images
type ImageHelper struct {
	Images []*ProcessImage
}

var _ process.ProcessHelper = (*ImageHelper)(nil)

func NewImageHelper(images ...*ProcessImage) *ImageHelper {
	return &ImageHelper{Images: images}
}

func (h *ImageHelper) New() process.Process {
	return &ProcessImage{}
}

func (h *ImageHelper) NewWithPID(pid process.ProcessID) (process.Process, error) {
	for _, image := range h.Images {
		if image.PID == pid {
			if err := image.Open(pid); err != nil {
				return nil, err
			}
			return image, nil
		}
	}
	return nil, fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessNotFound)
}

func (h *ImageHelper) Finder() process.ProcessFinder {
	return h
}

func (h *ImageHelper) OpenProcessByName(name string) (process.Process, error) {
	return process.OpenUnique(h, h.NewWithPID, name)
}

func (h *ImageHelper) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	for _, image := range h.Images {
		if image.PID == pid {
			return image.info(), nil
		}
	}
	return nil, fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessNotFound)
}

func (h *ImageHelper) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	var result []process.ProcessInfo
	for _, image := range h.Images {
		if strings.EqualFold(image.Name, name) {
			result = append(result, *image.info())
		}
	}
	return result, nil
}

func (h *ImageHelper) FindAllProcesses() ([]process.ProcessInfo, error) {
	result := make([]process.ProcessInfo, 0, len(h.Images))
	for _, image := range h.Images {
		result = append(result, *image.info())
	}
	return result, nil
}
