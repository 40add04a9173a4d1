package karma

import "errors"

var ErrRainCooldown = errors.New("karma_rain_cooldown")
