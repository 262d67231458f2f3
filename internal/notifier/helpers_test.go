package notifier

import logx "slotwatch/pkg/logx"

func nilLogger() logx.Logger { return logx.Nop() }
