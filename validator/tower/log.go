package tower

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "tower")
