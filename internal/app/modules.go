package app

import (
	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/modules/classify"
	"github.com/vk/docgraphgo/modules/coverage"
	"github.com/vk/docgraphgo/modules/docload"
	"github.com/vk/docgraphgo/modules/entities"
	"github.com/vk/docgraphgo/modules/questionnaire"
	"github.com/vk/docgraphgo/modules/report"
)

// coreModules is the definitive list of stage modules compiled into the
// docgraphgo binary: the default document-analysis pipeline.
var coreModules = []registry.Module{
	&docload.Module{},
	&classify.Module{},
	&entities.Module{},
	&coverage.Module{},
	&questionnaire.Module{},
	&report.Module{},
}
