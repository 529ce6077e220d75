package workflow

import "swipely/internal/store"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	text := &laneState{kind: laneText, name: "text", notificationsEnabled: true}
	media := &laneState{kind: laneMedia, name: "media", notificationsEnabled: false}

	if set.Writer != nil {
		text.stages = append(text.stages, pipelineStage{
			name:             "writer",
			handler:          set.Writer,
			startStatus:      store.StatusPending,
			processingStatus: store.StatusWriting,
			doneStatus:       store.StatusWritten,
		})
	}
	if set.Describer != nil {
		text.stages = append(text.stages, pipelineStage{
			name:             "describer",
			handler:          set.Describer,
			startStatus:      store.StatusWritten,
			processingStatus: store.StatusDescribing,
			doneStatus:       store.StatusDescribed,
		})
	}
	if set.Illustrator != nil {
		media.stages = append(media.stages, pipelineStage{
			name:             "illustrator",
			handler:          set.Illustrator,
			startStatus:      store.StatusDescribed,
			processingStatus: store.StatusIllustrating,
			doneStatus:       store.StatusIllustrated,
		})
	}
	if set.Exporter != nil {
		media.stages = append(media.stages, pipelineStage{
			name:             "exporter",
			handler:          set.Exporter,
			startStatus:      store.StatusIllustrated,
			processingStatus: store.StatusRendering,
			doneStatus:       store.StatusRendered,
		})
	}
	if set.Deliverer != nil {
		media.stages = append(media.stages, pipelineStage{
			name:             "deliverer",
			handler:          set.Deliverer,
			startStatus:      store.StatusRendered,
			processingStatus: store.StatusDelivering,
			doneStatus:       store.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(text.stages) > 0 {
		text.finalize()
		lanes[text.kind] = text
		order = append(order, text.kind)
	}
	if len(media.stages) > 0 {
		media.finalize()
		lanes[media.kind] = media
		order = append(order, media.kind)
	}

	for _, lane := range lanes {
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
