package reactionroles

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "reactionroles")
